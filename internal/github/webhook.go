package github

import (
	"errors"
	"fmt"

	gh "github.com/google/go-github/v69/github"
)

// SignatureHeader carries the HMAC-SHA256 signature of a webhook payload.
const SignatureHeader = "X-Hub-Signature-256"

// ErrIgnoredEvent is returned for webhook events that do not trigger a review.
var ErrIgnoredEvent = errors.New("event does not trigger a review")

// reviewActions are the pull_request actions that start a review.
var reviewActions = map[string]bool{
	"opened":      true,
	"reopened":    true,
	"synchronize": true,
}

// PullRequestEvent is the part of a pull_request webhook panel uses.
type PullRequestEvent struct {
	Action  string
	Ref     PRRef
	HTMLURL string
	HeadSHA string
}

// VerifySignature checks payload against the signature header value.
func VerifySignature(signature string, payload, secret []byte) error {
	if signature == "" {
		return errors.New("missing " + SignatureHeader + " header")
	}
	if err := gh.ValidateSignature(signature, payload, secret); err != nil {
		return fmt.Errorf("invalid webhook signature: %w", err)
	}
	return nil
}

// ParsePullRequestEvent decodes a webhook delivery. Events other than
// pull_request and actions other than opened, reopened and synchronize
// return ErrIgnoredEvent.
func ParsePullRequestEvent(eventType string, payload []byte) (PullRequestEvent, error) {
	if eventType != "pull_request" {
		return PullRequestEvent{}, fmt.Errorf("%w: %q", ErrIgnoredEvent, eventType)
	}
	ev, err := gh.ParseWebHook(eventType, payload)
	if err != nil {
		return PullRequestEvent{}, fmt.Errorf("parsing webhook payload: %w", err)
	}
	pre, ok := ev.(*gh.PullRequestEvent)
	if !ok {
		return PullRequestEvent{}, fmt.Errorf("%w: unexpected payload %T", ErrIgnoredEvent, ev)
	}
	action := pre.GetAction()
	if !reviewActions[action] {
		return PullRequestEvent{}, fmt.Errorf("%w: action %q", ErrIgnoredEvent, action)
	}

	repo := pre.GetRepo()
	pr := pre.GetPullRequest()
	number := pre.GetNumber()
	if number == 0 {
		number = pr.GetNumber()
	}
	out := PullRequestEvent{
		Action: action,
		Ref: PRRef{
			Owner:  repo.GetOwner().GetLogin(),
			Repo:   repo.GetName(),
			Number: number,
		},
		HTMLURL: pr.GetHTMLURL(),
		HeadSHA: pr.GetHead().GetSHA(),
	}
	if out.Ref.Owner == "" || out.Ref.Repo == "" || out.Ref.Number == 0 {
		return PullRequestEvent{}, errors.New("webhook payload missing repository or pull request number")
	}
	if out.HTMLURL == "" {
		out.HTMLURL = out.Ref.URL()
	}
	return out, nil
}
