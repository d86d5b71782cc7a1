package taxonomy

import (
	"errors"
	"testing"
)

func TestClassify_Question(t *testing.T) {
	tests := []struct {
		name string
		ctx  Context
		want ActionType
	}{
		{"create anon", Context{Kind: KindQuestion, Anonymous: true}, QuestionCreateAnon},
		{"create named", Context{Kind: KindQuestion}, QuestionCreateNamed},
		{"create collapses ownership", Context{Kind: KindQuestion, MyPost: true}, QuestionCreateNamed},
		{"edit own anon", Context{Kind: KindQuestion, Edit: true, MyPost: true, Anonymous: true}, QuestionEditOwnAnon},
		{"edit own named", Context{Kind: KindQuestion, Edit: true, MyPost: true}, QuestionEditOwnNamed},
		{"edit other anon", Context{Kind: KindQuestion, Edit: true, Anonymous: true}, QuestionEditOtherAnon},
		{"edit other named", Context{Kind: KindQuestion, Edit: true}, QuestionEditOtherNamed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.ctx)
			if err != nil {
				t.Fatalf("Classify returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify(%+v) = %v, want %v", tt.ctx, got, tt.want)
			}
		})
	}
}

func TestClassify_NoteAndPoll(t *testing.T) {
	tests := []struct {
		name string
		ctx  Context
		want ActionType
	}{
		{"note create anon", Context{Kind: KindNote, Anonymous: true}, NoteCreateAnon},
		{"note edit other named", Context{Kind: KindNote, Edit: true}, NoteEditOtherNamed},
		{"poll create named", Context{Kind: KindPoll}, PollCreateNamed},
		{"poll edit own anon", Context{Kind: KindPoll, Edit: true, MyPost: true, Anonymous: true}, PollEditOwnAnon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.ctx)
			if err != nil {
				t.Fatalf("Classify returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify(%+v) = %v, want %v", tt.ctx, got, tt.want)
			}
		})
	}
}

func TestClassify_StudentAnswer(t *testing.T) {
	tests := []struct {
		name string
		ctx  Context
		want ActionType
	}{
		{"create own question anon", Context{Kind: KindStudentAnswer, MyParent: true, Anonymous: true}, StudentAnswerCreateOwnQAnon},
		{"create other question named", Context{Kind: KindStudentAnswer}, StudentAnswerCreateOtherQNamed},
		{"edit own answer own question anon", Context{Kind: KindStudentAnswer, Edit: true, MyPost: true, MyParent: true, Anonymous: true}, StudentAnswerEditOwnAOwnQAnon},
		{"edit own answer other question named", Context{Kind: KindStudentAnswer, Edit: true, MyPost: true}, StudentAnswerEditOwnAOtherQNamed},
		{"edit other answer own question named", Context{Kind: KindStudentAnswer, Edit: true, MyParent: true}, StudentAnswerEditOtherAOwnQNamed},
		{"edit other answer other question anon", Context{Kind: KindStudentAnswer, Edit: true, Anonymous: true}, StudentAnswerEditOtherAOtherQAnon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.ctx)
			if err != nil {
				t.Fatalf("Classify returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify(%+v) = %v, want %v", tt.ctx, got, tt.want)
			}
		})
	}
}

func TestClassify_InstructorAnswer(t *testing.T) {
	// Instructor answers have no anonymity dimension: the flag must not
	// change the result.
	for _, anon := range []bool{true, false} {
		got, err := Classify(Context{Kind: KindInstructorAnswer, Anonymous: anon})
		if err != nil {
			t.Fatalf("Classify returned error: %v", err)
		}
		if got != InstructorAnswerCreate {
			t.Errorf("create with anon=%v = %v, want InstructorAnswerCreate", anon, got)
		}
	}

	got, _ := Classify(Context{Kind: KindInstructorAnswer, Edit: true, MyPost: true})
	if got != InstructorAnswerEditOwn {
		t.Errorf("edit own = %v, want InstructorAnswerEditOwn", got)
	}
	got, _ = Classify(Context{Kind: KindInstructorAnswer, Edit: true})
	if got != InstructorAnswerEditOther {
		t.Errorf("edit other = %v, want InstructorAnswerEditOther", got)
	}
}

func TestClassify_FollowupAndFeedback(t *testing.T) {
	tests := []struct {
		name string
		ctx  Context
		want ActionType
	}{
		{"followup own question anon", Context{Kind: KindFollowup, MyParent: true, Anonymous: true}, FollowupOwnQAnon},
		{"followup other question named", Context{Kind: KindFollowup}, FollowupOtherQNamed},
		{"feedback own followup own question anon", Context{Kind: KindFeedback, MyParent: true, MyRoot: true, Anonymous: true}, FeedbackOwnFOwnQAnon},
		{"feedback own followup other question named", Context{Kind: KindFeedback, MyParent: true}, FeedbackOwnFOtherQNamed},
		{"feedback other followup own question anon", Context{Kind: KindFeedback, MyRoot: true, Anonymous: true}, FeedbackOtherFOwnQAnon},
		{"feedback other followup other question named", Context{Kind: KindFeedback}, FeedbackOtherFOtherQNamed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.ctx)
			if err != nil {
				t.Fatalf("Classify returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify(%+v) = %v, want %v", tt.ctx, got, tt.want)
			}
		})
	}
}

func TestClassify_UnknownKind(t *testing.T) {
	for _, kind := range []PostKind{"", "announcement", "reply"} {
		_, err := Classify(Context{Kind: kind})
		if err == nil {
			t.Fatalf("expected error for kind %q", kind)
		}
		if !errors.Is(err, ErrUnknownKind) {
			t.Errorf("expected ErrUnknownKind for %q, got %v", kind, err)
		}
	}
}

func TestClassify_TotalAndDeterministic(t *testing.T) {
	kinds := []PostKind{KindNote, KindPoll, KindQuestion, KindInstructorAnswer, KindStudentAnswer, KindFollowup, KindFeedback}
	bools := []bool{false, true}

	seen := make(map[ActionType]bool)
	for _, kind := range kinds {
		for _, edit := range bools {
			for _, myPost := range bools {
				for _, myParent := range bools {
					for _, myRoot := range bools {
						for _, anon := range bools {
							ctx := Context{Kind: kind, Edit: edit, MyPost: myPost, MyParent: myParent, MyRoot: myRoot, Anonymous: anon}
							got, err := Classify(ctx)
							if err != nil {
								t.Fatalf("Classify(%+v) errored: %v", ctx, err)
							}
							if !got.Valid() {
								t.Fatalf("Classify(%+v) = %v outside the closed set", ctx, got)
							}
							again, _ := Classify(ctx)
							if again != got {
								t.Fatalf("Classify(%+v) not deterministic: %v then %v", ctx, got, again)
							}
							seen[got] = true
						}
					}
				}
			}
		}
	}

	if len(seen) != Count() {
		t.Errorf("expected every one of %d action types reachable, got %d", Count(), len(seen))
	}
}

func TestDescribe_EveryTagHasASentence(t *testing.T) {
	for i := 0; i < Count(); i++ {
		tag := ActionType(i)
		if Describe(tag) == "" || Describe(tag) == "unknown action" {
			t.Errorf("no description for %v", tag)
		}
		if tag.String() == "" || tag.String() == "invalid" {
			t.Errorf("no name for tag %d", i)
		}
	}
	if Describe(ActionType(-1)) != "unknown action" {
		t.Error("out-of-range tag should describe as unknown")
	}
}

func TestActionType_StableValues(t *testing.T) {
	// Persisted type ids; moving any of these breaks stored data.
	tests := []struct {
		tag  ActionType
		want int
	}{
		{QuestionCreateAnon, 0},
		{NoteCreateAnon, 6},
		{PollCreateAnon, 12},
		{StudentAnswerCreateOwnQAnon, 18},
		{InstructorAnswerCreate, 30},
		{FollowupOwnQAnon, 33},
		{FeedbackOwnFOwnQAnon, 37},
		{FeedbackOtherFOtherQNamed, 44},
	}
	for _, tt := range tests {
		if Index(tt.tag) != tt.want {
			t.Errorf("Index(%v) = %d, want %d", tt.tag, Index(tt.tag), tt.want)
		}
	}
	if Count() != 45 {
		t.Errorf("Count() = %d, want 45", Count())
	}
}
