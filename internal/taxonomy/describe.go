package taxonomy

// details maps every tag to its stable name and human-readable sentence.
// The sentence is derived from the tag's structural components only, so two
// contexts collapsing to the same tag always describe identically.
var details = [actionTypeCount]struct {
	name string
	desc string
}{
	QuestionCreateAnon:     {"question_create_anon", "posted a question anonymously"},
	QuestionCreateNamed:    {"question_create_named", "posted a question under their name"},
	QuestionEditOwnAnon:    {"question_edit_own_anon", "edited their own question anonymously"},
	QuestionEditOwnNamed:   {"question_edit_own_named", "edited their own question under their name"},
	QuestionEditOtherAnon:  {"question_edit_other_anon", "edited another user's question anonymously"},
	QuestionEditOtherNamed: {"question_edit_other_named", "edited another user's question under their name"},

	NoteCreateAnon:     {"note_create_anon", "posted a note anonymously"},
	NoteCreateNamed:    {"note_create_named", "posted a note under their name"},
	NoteEditOwnAnon:    {"note_edit_own_anon", "edited their own note anonymously"},
	NoteEditOwnNamed:   {"note_edit_own_named", "edited their own note under their name"},
	NoteEditOtherAnon:  {"note_edit_other_anon", "edited another user's note anonymously"},
	NoteEditOtherNamed: {"note_edit_other_named", "edited another user's note under their name"},

	PollCreateAnon:     {"poll_create_anon", "posted a poll anonymously"},
	PollCreateNamed:    {"poll_create_named", "posted a poll under their name"},
	PollEditOwnAnon:    {"poll_edit_own_anon", "edited their own poll anonymously"},
	PollEditOwnNamed:   {"poll_edit_own_named", "edited their own poll under their name"},
	PollEditOtherAnon:  {"poll_edit_other_anon", "edited another user's poll anonymously"},
	PollEditOtherNamed: {"poll_edit_other_named", "edited another user's poll under their name"},

	StudentAnswerCreateOwnQAnon:    {"s_answer_create_own_q_anon", "answered their own question anonymously"},
	StudentAnswerCreateOwnQNamed:   {"s_answer_create_own_q_named", "answered their own question under their name"},
	StudentAnswerCreateOtherQAnon:  {"s_answer_create_other_q_anon", "answered another user's question anonymously"},
	StudentAnswerCreateOtherQNamed: {"s_answer_create_other_q_named", "answered another user's question under their name"},

	StudentAnswerEditOwnAOwnQAnon:      {"s_answer_edit_own_a_own_q_anon", "edited their own answer to their own question anonymously"},
	StudentAnswerEditOwnAOwnQNamed:     {"s_answer_edit_own_a_own_q_named", "edited their own answer to their own question under their name"},
	StudentAnswerEditOwnAOtherQAnon:    {"s_answer_edit_own_a_other_q_anon", "edited their own answer to another user's question anonymously"},
	StudentAnswerEditOwnAOtherQNamed:   {"s_answer_edit_own_a_other_q_named", "edited their own answer to another user's question under their name"},
	StudentAnswerEditOtherAOwnQAnon:    {"s_answer_edit_other_a_own_q_anon", "edited another student's answer to their own question anonymously"},
	StudentAnswerEditOtherAOwnQNamed:   {"s_answer_edit_other_a_own_q_named", "edited another student's answer to their own question under their name"},
	StudentAnswerEditOtherAOtherQAnon:  {"s_answer_edit_other_a_other_q_anon", "edited another student's answer to another user's question anonymously"},
	StudentAnswerEditOtherAOtherQNamed: {"s_answer_edit_other_a_other_q_named", "edited another student's answer to another user's question under their name"},

	InstructorAnswerCreate:    {"i_answer_create", "posted an instructor answer"},
	InstructorAnswerEditOwn:   {"i_answer_edit_own", "edited their own instructor answer"},
	InstructorAnswerEditOther: {"i_answer_edit_other", "edited another instructor's answer"},

	FollowupOwnQAnon:   {"followup_own_q_anon", "followed up on their own question anonymously"},
	FollowupOwnQNamed:  {"followup_own_q_named", "followed up on their own question under their name"},
	FollowupOtherQAnon: {"followup_other_q_anon", "followed up on another user's question anonymously"},
	FollowupOtherQNamed: {"followup_other_q_named", "followed up on another user's question under their name"},

	FeedbackOwnFOwnQAnon:     {"feedback_own_f_own_q_anon", "gave feedback on their own follow-up to their own question anonymously"},
	FeedbackOwnFOwnQNamed:    {"feedback_own_f_own_q_named", "gave feedback on their own follow-up to their own question under their name"},
	FeedbackOwnFOtherQAnon:   {"feedback_own_f_other_q_anon", "gave feedback on their own follow-up to another user's question anonymously"},
	FeedbackOwnFOtherQNamed:  {"feedback_own_f_other_q_named", "gave feedback on their own follow-up to another user's question under their name"},
	FeedbackOtherFOwnQAnon:   {"feedback_other_f_own_q_anon", "gave feedback on another user's follow-up to their own question anonymously"},
	FeedbackOtherFOwnQNamed:  {"feedback_other_f_own_q_named", "gave feedback on another user's follow-up to their own question under their name"},
	FeedbackOtherFOtherQAnon: {"feedback_other_f_other_q_anon", "gave feedback on another user's follow-up to another user's question anonymously"},
	FeedbackOtherFOtherQNamed: {"feedback_other_f_other_q_named", "gave feedback on another user's follow-up to another user's question under their name"},
}

// String returns the stable snake_case name of t.
func (t ActionType) String() string {
	if !t.Valid() {
		return "invalid"
	}
	return details[t].name
}

// Describe returns the human-readable sentence for t.
func Describe(t ActionType) string {
	if !t.Valid() {
		return "unknown action"
	}
	return details[t].desc
}
