package github

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	gh "github.com/google/go-github/v69/github"

	"github.com/dshills/panel/internal/diffctx"
	"github.com/dshills/panel/internal/review"
)

const prDiff = `diff --git a/main.go b/main.go
--- a/main.go
+++ b/main.go
@@ -8,4 +8,6 @@
 func run() {
+	x := load()
+	use(x)
 	a()
 	b()
 }
`

func testClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := gh.NewClient(srv.Client())
	u, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	c.BaseURL = u
	return &Client{gh: c}
}

func TestFetchDiff(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/owner/repo/pulls/42" {
			t.Errorf("Path = %q, want %q", r.URL.Path, "/repos/owner/repo/pulls/42")
		}
		if !strings.Contains(r.Header.Get("Accept"), "diff") {
			t.Errorf("Accept = %q, want a diff media type", r.Header.Get("Accept"))
		}
		io.WriteString(w, prDiff)
	}))

	diff, err := c.FetchDiff(context.Background(), PRRef{Owner: "owner", Repo: "repo", Number: 42})
	if err != nil {
		t.Fatalf("FetchDiff error: %v", err)
	}
	if diff != prDiff {
		t.Errorf("diff = %q", diff)
	}
}

func TestFetchDiff_Errors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusUnauthorized, ErrUnauthorized},
	}
	for _, tt := range tests {
		c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			io.WriteString(w, `{"message":"nope"}`)
		}))
		_, err := c.FetchDiff(context.Background(), PRRef{Owner: "o", Repo: "r", Number: 1})
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: err = %v, want %v", tt.status, err, tt.want)
		}
	}
}

func TestNewClient_RequiresToken(t *testing.T) {
	if _, err := NewClient(context.Background(), "", ""); !errors.Is(err, ErrNoToken) {
		t.Errorf("err = %v, want ErrNoToken", err)
	}
	if _, err := NewClient(context.Background(), "tok", "https://ghe.example.com/api/v3/"); err != nil {
		t.Errorf("enterprise client: %v", err)
	}
}

func sampleReview() *review.Review {
	return &review.Review{
		Comments: []review.InlineComment{
			{Path: "main.go", Lines: review.LineRange{Start: 9, End: 10}, Severity: review.SeverityMajor, Category: review.CategoryLogic, Message: "x may be nil", Body: "body-1"},
			{Path: "main.go", Lines: review.LineRange{Start: 40, End: 40}, Severity: review.SeverityMinor, Category: review.CategoryOther, Message: "outside the hunk", Body: "body-2"},
			{Path: "other.go", Lines: review.LineRange{Start: 1, End: 1}, Severity: review.SeverityMinor, Category: review.CategoryOther, Message: "file not in diff", Body: "body-3"},
		},
		Summary: review.Summary{
			{Category: review.CategoryLogic, Severity: review.SeverityMajor, Count: 1},
			{Category: review.CategoryOther, Severity: review.SeverityMinor, Count: 2},
		},
		PriorityActions: []string{"[Major/Logic] x may be nil (main.go:9-10)"},
		Notes:           []review.Note{{Kind: review.NoteSkipped, Category: review.CategoryTypeSafety, Message: "not applicable"}},
	}
}

func TestBuildReviewRequest(t *testing.T) {
	d, err := diffctx.Parse(prDiff)
	if err != nil {
		t.Fatal(err)
	}
	req := BuildReviewRequest(sampleReview(), "abc123", d)

	if req.GetEvent() != "COMMENT" {
		t.Errorf("Event = %q, want COMMENT", req.GetEvent())
	}
	if req.GetCommitID() != "abc123" {
		t.Errorf("CommitID = %q", req.GetCommitID())
	}
	if len(req.Comments) != 1 {
		t.Fatalf("Comments = %d, want 1", len(req.Comments))
	}
	c := req.Comments[0]
	if c.GetPath() != "main.go" || c.GetLine() != 10 || c.GetStartLine() != 9 || c.GetSide() != "RIGHT" {
		t.Errorf("comment = path %q line %d start %d side %q", c.GetPath(), c.GetLine(), c.GetStartLine(), c.GetSide())
	}
	body := req.GetBody()
	for _, want := range []string{"Panel Code Review", "| Logic | 0 | 1 | 0 |", "Priority Actions", "outside the hunk", "file not in diff", "skipped"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestBuildReviewRequest_SingleLine(t *testing.T) {
	d, _ := diffctx.Parse(prDiff)
	rev := &review.Review{Comments: []review.InlineComment{
		{Path: "main.go", Lines: review.LineRange{Start: 9, End: 9}, Body: "b"},
	}}
	req := BuildReviewRequest(rev, "", d)
	if req.CommitID != nil {
		t.Error("CommitID should be omitted when unknown")
	}
	if req.Comments[0].StartLine != nil {
		t.Error("single-line comment must not set start_line")
	}
}

func TestBuildReviewRequest_NoIssues(t *testing.T) {
	req := BuildReviewRequest(&review.Review{}, "", nil)
	if !strings.Contains(req.GetBody(), "No issues found") {
		t.Errorf("body = %q", req.GetBody())
	}
}

func TestPublish(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/repos/o/r/pulls/5":
			io.WriteString(w, `{"number":5,"head":{"sha":"deadbeef"}}`)
		case r.Method == http.MethodPost && r.URL.Path == "/repos/o/r/pulls/5/reviews":
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			if body["commit_id"] != "deadbeef" {
				t.Errorf("commit_id = %v", body["commit_id"])
			}
			if body["event"] != "COMMENT" {
				t.Errorf("event = %v", body["event"])
			}
			io.WriteString(w, `{"id":99,"html_url":"https://github.com/o/r/pull/5#pullrequestreview-99"}`)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	d, _ := diffctx.Parse(prDiff)
	pub, err := c.Publish(context.Background(), PRRef{Owner: "o", Repo: "r", Number: 5}, sampleReview(), d)
	if err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if pub.ID != 99 || !strings.Contains(pub.URL, "pullrequestreview-99") {
		t.Errorf("Published = %+v", pub)
	}
	if pub.Inline != 1 {
		t.Errorf("Inline = %d, want 1", pub.Inline)
	}
}

func TestPublish_FallsBackToSummaryOnReject(t *testing.T) {
	var posts atomic.Int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			io.WriteString(w, `{"number":5,"head":{"sha":"deadbeef"}}`)
			return
		}
		var body struct {
			Comments []any `json:"comments"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if posts.Add(1) == 1 {
			if len(body.Comments) == 0 {
				t.Error("first attempt should carry inline comments")
			}
			w.WriteHeader(http.StatusUnprocessableEntity)
			io.WriteString(w, `{"message":"Validation Failed"}`)
			return
		}
		if len(body.Comments) != 0 {
			t.Error("fallback should not carry inline comments")
		}
		io.WriteString(w, `{"id":7,"html_url":"https://github.com/o/r/pull/5#pullrequestreview-7"}`)
	}))

	d, _ := diffctx.Parse(prDiff)
	pub, err := c.Publish(context.Background(), PRRef{Owner: "o", Repo: "r", Number: 5}, sampleReview(), d)
	if err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if posts.Load() != 2 || pub.Inline != 0 {
		t.Errorf("posts = %d, inline = %d", posts.Load(), pub.Inline)
	}
}

func TestParsePRURL(t *testing.T) {
	tests := []struct {
		in      string
		want    PRRef
		wantErr bool
	}{
		{"https://github.com/acme/web/pull/12", PRRef{"acme", "web", 12}, false},
		{"https://github.com/acme/web/pull/12/files?w=1", PRRef{"acme", "web", 12}, false},
		{" https://ghe.example.com/team/app/pull/3 ", PRRef{"team", "app", 3}, false},
		{"https://github.com/acme/web/issues/12", PRRef{}, true},
		{"https://github.com/acme/web/pull/abc", PRRef{}, true},
		{"https://github.com/acme/web/pull/0", PRRef{}, true},
		{"github.com/acme/web/pull/12", PRRef{}, true},
		{"", PRRef{}, true},
	}
	for _, tt := range tests {
		got, err := ParsePRURL(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidPRURL) {
				t.Errorf("ParsePRURL(%q) err = %v, want ErrInvalidPRURL", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParsePRURL(%q) = %+v, %v; want %+v", tt.in, got, err, tt.want)
		}
	}
}

func TestParsePRArg(t *testing.T) {
	ctx := context.Background()
	got, err := ParsePRArg(ctx, "acme/web#7", "")
	if err != nil || got != (PRRef{"acme", "web", 7}) {
		t.Errorf("ParsePRArg(owner/repo#n) = %+v, %v", got, err)
	}
	if _, err := ParsePRArg(ctx, "acme#7", ""); err == nil {
		t.Error("expected error for missing repo")
	}
	if _, err := ParsePRArg(ctx, "-1", ""); err == nil {
		t.Error("expected error for negative number")
	}
	ref := PRRef{"acme", "web", 7}
	if ref.String() != "acme/web#7" || ref.URL() != "https://github.com/acme/web/pull/7" {
		t.Errorf("String/URL = %q %q", ref.String(), ref.URL())
	}
}

func TestParseRemoteURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{"HTTPS", "https://github.com/dshills/panel.git", "dshills", "panel", false},
		{"HTTPS no .git", "https://github.com/dshills/panel", "dshills", "panel", false},
		{"SSH", "git@github.com:dshills/panel.git", "dshills", "panel", false},
		{"SSH no .git", "git@github.com:dshills/panel", "dshills", "panel", false},
		{"invalid", "not-a-url", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := ParseRemoteURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if owner != tt.wantOwner || repo != tt.wantRepo {
				t.Errorf("got %s/%s, want %s/%s", owner, repo, tt.wantOwner, tt.wantRepo)
			}
		})
	}
}

func sign(payload, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

const prEvent = `{
  "action": "%s",
  "number": 7,
  "pull_request": {"number": 7, "html_url": "https://github.com/acme/web/pull/7", "head": {"sha": "abc"}},
  "repository": {"name": "web", "full_name": "acme/web", "owner": {"login": "acme"}}
}`

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"zen":"hi"}`)
	secret := []byte("s3cret")
	if err := VerifySignature(sign(payload, secret), payload, secret); err != nil {
		t.Errorf("valid signature rejected: %v", err)
	}
	if err := VerifySignature(sign(payload, []byte("other")), payload, secret); err == nil {
		t.Error("wrong secret accepted")
	}
	if err := VerifySignature("", payload, secret); err == nil {
		t.Error("missing signature accepted")
	}
}

func TestParsePullRequestEvent(t *testing.T) {
	for _, action := range []string{"opened", "reopened", "synchronize"} {
		ev, err := ParsePullRequestEvent("pull_request", []byte(strings.Replace(prEvent, "%s", action, 1)))
		if err != nil {
			t.Fatalf("%s: %v", action, err)
		}
		if ev.Ref != (PRRef{"acme", "web", 7}) || ev.HeadSHA != "abc" || ev.Action != action {
			t.Errorf("%s: event = %+v", action, ev)
		}
	}

	if _, err := ParsePullRequestEvent("pull_request", []byte(strings.Replace(prEvent, "%s", "closed", 1))); !errors.Is(err, ErrIgnoredEvent) {
		t.Errorf("closed: err = %v, want ErrIgnoredEvent", err)
	}
	if _, err := ParsePullRequestEvent("push", []byte(`{}`)); !errors.Is(err, ErrIgnoredEvent) {
		t.Errorf("push: err = %v, want ErrIgnoredEvent", err)
	}
	if _, err := ParsePullRequestEvent("pull_request", []byte(`{not json`)); err == nil || errors.Is(err, ErrIgnoredEvent) {
		t.Errorf("bad payload: err = %v", err)
	}
}
