package taxonomy

import "fmt"

// PostKind identifies the structural kind of a forum post or reply as it
// appears on the wire.
type PostKind string

const (
	KindNote             PostKind = "note"
	KindPoll             PostKind = "poll"
	KindQuestion         PostKind = "question"
	KindInstructorAnswer PostKind = "i_answer"
	KindStudentAnswer    PostKind = "s_answer"
	KindFollowup         PostKind = "followup"
	KindFeedback         PostKind = "feedback"
)

// ErrUnknownKind is returned by Classify for a post kind outside the
// recognized set. Callers record it against the offending post and skip.
var ErrUnknownKind = fmt.Errorf("unknown post kind")

// Context carries the structural facts Classify needs about one user event.
// Ownership flags are relative to the most recent revision author of the
// post, its parent, and the thread root respectively; flags that don't
// apply to a kind are ignored.
type Context struct {
	Kind      PostKind
	Edit      bool // false only for the chronologically earliest revision
	MyPost    bool // author matches the post's current owner
	MyParent  bool // author matches the parent post's owner
	MyRoot    bool // author matches the thread root's owner (feedback only)
	Anonymous bool
}

// ActionType is a closed tag identifying one classified user event.
// The integer values are persisted; append only, never reorder.
type ActionType int

const (
	QuestionCreateAnon ActionType = iota
	QuestionCreateNamed
	QuestionEditOwnAnon
	QuestionEditOwnNamed
	QuestionEditOtherAnon
	QuestionEditOtherNamed

	NoteCreateAnon
	NoteCreateNamed
	NoteEditOwnAnon
	NoteEditOwnNamed
	NoteEditOtherAnon
	NoteEditOtherNamed

	PollCreateAnon
	PollCreateNamed
	PollEditOwnAnon
	PollEditOwnNamed
	PollEditOtherAnon
	PollEditOtherNamed

	StudentAnswerCreateOwnQAnon
	StudentAnswerCreateOwnQNamed
	StudentAnswerCreateOtherQAnon
	StudentAnswerCreateOtherQNamed
	StudentAnswerEditOwnAOwnQAnon
	StudentAnswerEditOwnAOwnQNamed
	StudentAnswerEditOwnAOtherQAnon
	StudentAnswerEditOwnAOtherQNamed
	StudentAnswerEditOtherAOwnQAnon
	StudentAnswerEditOtherAOwnQNamed
	StudentAnswerEditOtherAOtherQAnon
	StudentAnswerEditOtherAOtherQNamed

	InstructorAnswerCreate
	InstructorAnswerEditOwn
	InstructorAnswerEditOther

	FollowupOwnQAnon
	FollowupOwnQNamed
	FollowupOtherQAnon
	FollowupOtherQNamed

	FeedbackOwnFOwnQAnon
	FeedbackOwnFOwnQNamed
	FeedbackOwnFOtherQAnon
	FeedbackOwnFOtherQNamed
	FeedbackOtherFOwnQAnon
	FeedbackOtherFOwnQNamed
	FeedbackOtherFOtherQAnon
	FeedbackOtherFOtherQNamed

	actionTypeCount // sentinel, keep last
)

// Count is the number of action types; sampler histograms are dense
// vectors of this length.
func Count() int { return int(actionTypeCount) }

// Index is the zero-based dense index of t, used for sampler histograms.
func Index(t ActionType) int { return int(t) }

// Valid reports whether t is inside the closed set.
func (t ActionType) Valid() bool { return t >= 0 && t < actionTypeCount }

// Classify maps the structural context of one user event to its action
// type. It is pure and total over the recognized kinds; an unrecognized
// kind yields an error wrapping ErrUnknownKind.
func Classify(c Context) (ActionType, error) {
	switch c.Kind {
	case KindQuestion:
		return rootKindType(c, QuestionCreateAnon), nil
	case KindNote:
		return rootKindType(c, NoteCreateAnon), nil
	case KindPoll:
		return rootKindType(c, PollCreateAnon), nil
	case KindStudentAnswer:
		return studentAnswerType(c), nil
	case KindInstructorAnswer:
		return instructorAnswerType(c), nil
	case KindFollowup:
		return followupType(c), nil
	case KindFeedback:
		return feedbackType(c), nil
	default:
		return -1, fmt.Errorf("%w: %q", ErrUnknownKind, c.Kind)
	}
}

// rootKindType handles note, poll and question, whose six variants share
// one layout: create anon/named, then edit own/other x anon/named.
// base is the kind's create-anon variant.
func rootKindType(c Context, base ActionType) ActionType {
	if !c.Edit {
		if c.Anonymous {
			return base
		}
		return base + 1
	}
	off := ActionType(2)
	if !c.MyPost {
		off += 2
	}
	if !c.Anonymous {
		off++
	}
	return base + off
}

func studentAnswerType(c Context) ActionType {
	if !c.Edit {
		// Creates collapse the answer-ownership dimension: the author is
		// by definition the answer's owner. Only the question matters.
		switch {
		case c.MyParent && c.Anonymous:
			return StudentAnswerCreateOwnQAnon
		case c.MyParent:
			return StudentAnswerCreateOwnQNamed
		case c.Anonymous:
			return StudentAnswerCreateOtherQAnon
		default:
			return StudentAnswerCreateOtherQNamed
		}
	}
	off := ActionType(0)
	if !c.MyPost {
		off += 4
	}
	if !c.MyParent {
		off += 2
	}
	if !c.Anonymous {
		off++
	}
	return StudentAnswerEditOwnAOwnQAnon + off
}

func instructorAnswerType(c Context) ActionType {
	// Instructor answers carry no anonymity dimension.
	if !c.Edit {
		return InstructorAnswerCreate
	}
	if c.MyPost {
		return InstructorAnswerEditOwn
	}
	return InstructorAnswerEditOther
}

func followupType(c Context) ActionType {
	off := ActionType(0)
	if !c.MyParent {
		off += 2
	}
	if !c.Anonymous {
		off++
	}
	return FollowupOwnQAnon + off
}

func feedbackType(c Context) ActionType {
	off := ActionType(0)
	if !c.MyParent {
		off += 4
	}
	if !c.MyRoot {
		off += 2
	}
	if !c.Anonymous {
		off++
	}
	return FeedbackOwnFOwnQAnon + off
}
