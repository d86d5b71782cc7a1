package walker

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/quarrylabs/quarry/internal/forum"
	"github.com/quarrylabs/quarry/internal/store"
	"github.com/quarrylabs/quarry/internal/taxonomy"
)

// ClassifyError tags a classification failure with the post that caused
// it, so the orchestrator can record and skip just that post.
type ClassifyError struct {
	PostID string
	Err    error
}

func (e *ClassifyError) Error() string {
	return fmt.Sprintf("classify post %s: %v", e.PostID, e.Err)
}

func (e *ClassifyError) Unwrap() error { return e.Err }

// Walk turns one fetched post tree into its ordered action sequence:
// the root's history oldest-first, then children in feed order. Answer
// children recurse as posts of their own; any other child is a follow-up
// whose children are feedback on it. The output preserves document order,
// not chronological order.
func Walk(crawlID uuid.UUID, root *forum.RawPost) ([]store.Action, error) {
	var out []store.Action
	if err := walkPost(crawlID, root, root, root, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func walkPost(crawlID uuid.UUID, root, parent, post *forum.RawPost, out *[]store.Action) error {
	if err := appendHistory(crawlID, parent, post, out); err != nil {
		return err
	}

	for _, child := range post.Children {
		switch taxonomy.PostKind(child.Type) {
		case taxonomy.KindInstructorAnswer, taxonomy.KindStudentAnswer:
			if err := walkPost(crawlID, root, post, child, out); err != nil {
				return err
			}
		default:
			if err := appendFollowup(crawlID, root, post, child, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// appendHistory walks a post's revision chain oldest-first. The feed
// delivers history newest-first, so the last element is the create and
// everything before it, in reverse, is an edit. Every revision is
// evaluated against the chain's current owner.
func appendHistory(crawlID uuid.UUID, parent, post *forum.RawPost, out *[]store.Action) error {
	n := len(post.History)
	for i := n - 1; i >= 0; i-- {
		rev := post.History[i]
		ctx := taxonomy.Context{
			Kind:      taxonomy.PostKind(post.Type),
			Edit:      i != n-1,
			MyPost:    rev.UID == post.Owner(),
			MyParent:  rev.UID == parent.Owner(),
			Anonymous: rev.Anonymous(),
		}
		t, err := taxonomy.Classify(ctx)
		if err != nil {
			return &ClassifyError{PostID: post.ID, Err: err}
		}
		*out = append(*out, store.Action{
			ID:      uuid.New(),
			CrawlID: crawlID,
			UID:     rev.UID,
			Type:    t,
			Time:    rev.Created,
			Content: joinContent(rev.Subject, rev.Content),
		})
	}
	return nil
}

// appendFollowup produces one action for a follow-up and one feedback
// action per reply to it, each evaluated against the follow-up and the
// thread root.
func appendFollowup(crawlID uuid.UUID, root, parent, followup *forum.RawPost, out *[]store.Action) error {
	ctx := taxonomy.Context{
		Kind:      taxonomy.KindFollowup,
		MyParent:  followup.UID == parent.Owner(),
		Anonymous: followup.Anonymous(),
	}
	t, err := taxonomy.Classify(ctx)
	if err != nil {
		return &ClassifyError{PostID: followup.ID, Err: err}
	}
	*out = append(*out, store.Action{
		ID:      uuid.New(),
		CrawlID: crawlID,
		UID:     followup.UID,
		Type:    t,
		Time:    followup.Created,
		Content: followup.Subject,
	})

	for _, fb := range followup.Children {
		ctx := taxonomy.Context{
			Kind:      taxonomy.KindFeedback,
			MyParent:  fb.UID == followup.Owner(),
			MyRoot:    fb.UID == root.Owner(),
			Anonymous: fb.Anonymous(),
		}
		t, err := taxonomy.Classify(ctx)
		if err != nil {
			return &ClassifyError{PostID: fb.ID, Err: err}
		}
		*out = append(*out, store.Action{
			ID:      uuid.New(),
			CrawlID: crawlID,
			UID:     fb.UID,
			Type:    t,
			Time:    fb.Created,
			Content: fb.Subject,
		})
	}
	return nil
}

func joinContent(subject, content string) string {
	if subject == "" {
		return content
	}
	return subject + "\n" + content
}
