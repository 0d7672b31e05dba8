package git

import (
	"errors"
	"strings"
	"testing"
)

// recordingRunner captures issued commands and replays scripted output.
type recordingRunner struct {
	calls   [][]string
	outputs map[string]string // joined args -> stdout
	errs    map[string]error  // joined args -> error
}

func (r *recordingRunner) run(dir string, args ...string) (string, error) {
	r.calls = append(r.calls, args)
	key := strings.Join(args, " ")
	if err, ok := r.errs[key]; ok {
		return "", err
	}
	return r.outputs[key], nil
}

func (r *recordingRunner) lastCall() []string {
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

func cmdErr(args ...string) error {
	return &CommandError{Args: args, Stderr: "fatal: bad revision", Err: errors.New("exit status 128")}
}

func TestBranchExists(t *testing.T) {
	tests := []struct {
		name   string
		branch string
		local  bool
		remote bool
		want   bool
	}{
		{"local only", "feature-x", true, false, true},
		{"remote only", "feature-x", false, true, true},
		{"both", "main", true, true, true},
		{"neither", "ghost", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recordingRunner{outputs: map[string]string{}, errs: map[string]error{}}
			if tt.local {
				r.outputs["rev-parse --verify "+tt.branch] = "abc123\n"
			} else {
				r.errs["rev-parse --verify "+tt.branch] = cmdErr("rev-parse")
			}
			if tt.remote {
				r.outputs["rev-parse --verify origin/"+tt.branch] = "abc123\n"
			} else {
				r.errs["rev-parse --verify origin/"+tt.branch] = cmdErr("rev-parse")
			}

			b := NewBackendWithRunner(r.run)
			if got := b.BranchExists("/repo", tt.branch); got != tt.want {
				t.Errorf("BranchExists(%q) = %v, want %v", tt.branch, got, tt.want)
			}
		})
	}
}

func TestListBranches(t *testing.T) {
	r := &recordingRunner{outputs: map[string]string{
		"branch -r --format=%(refname:short)": "origin/HEAD\norigin/main\norigin/feature-x\norigin/main\n\norigin/fix/bug-1\n",
	}}

	b := NewBackendWithRunner(r.run)
	got, err := b.ListBranches("/repo", true)
	if err != nil {
		t.Fatalf("ListBranches failed: %v", err)
	}

	want := []string{"feature-x", "fix/bug-1", "main"}
	if len(got) != len(want) {
		t.Fatalf("ListBranches = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ListBranches[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIsBranchCheckedOutElsewhere(t *testing.T) {
	porcelain := "worktree /home/u/base\nHEAD abc\nbranch refs/heads/main\n\n" +
		"worktree /home/u/envs/e1/repo\nHEAD def\nbranch refs/heads/feature/deep-work\n\n"

	r := &recordingRunner{outputs: map[string]string{
		"worktree list --porcelain": porcelain,
	}}
	b := NewBackendWithRunner(r.run)

	tests := []struct {
		branch string
		want   bool
	}{
		{"main", true},
		{"feature/deep-work", true},
		{"feature-x", false},
		// A branch must match the full short name, not a suffix.
		{"deep-work", false},
	}
	for _, tt := range tests {
		got, err := b.IsBranchCheckedOutElsewhere("/repo", tt.branch)
		if err != nil {
			t.Fatalf("IsBranchCheckedOutElsewhere(%q) failed: %v", tt.branch, err)
		}
		if got != tt.want {
			t.Errorf("IsBranchCheckedOutElsewhere(%q) = %v, want %v", tt.branch, got, tt.want)
		}
	}
}

func TestTrackingBranchName(t *testing.T) {
	name := TrackingBranchName("feature-x")
	if !strings.HasPrefix(name, "tracking/") || !strings.HasSuffix(name, "/feature-x") {
		t.Fatalf("TrackingBranchName = %q, want tracking/<hex>/feature-x", name)
	}

	mid := strings.TrimSuffix(strings.TrimPrefix(name, "tracking/"), "/feature-x")
	if len(mid) != 8 {
		t.Errorf("random segment %q has length %d, want 8", mid, len(mid))
	}

	// Names must be distinct across invocations.
	if other := TrackingBranchName("feature-x"); other == name {
		t.Errorf("two generated names collided: %q", name)
	}
}

func TestCreateWorktree_FromBase(t *testing.T) {
	r := &recordingRunner{outputs: map[string]string{}}
	b := NewBackendWithRunner(r.run)

	got, err := b.CreateWorktree("/base", "new-feature", "/envs/e/repo", "main")
	if err != nil {
		t.Fatalf("CreateWorktree failed: %v", err)
	}
	if got != "new-feature" {
		t.Errorf("branch = %q, want %q", got, "new-feature")
	}

	want := []string{"worktree", "add", "-b", "new-feature", "/envs/e/repo", "origin/main"}
	last := r.lastCall()
	if strings.Join(last, " ") != strings.Join(want, " ") {
		t.Errorf("issued %v, want %v", last, want)
	}
}

func TestCreateWorktree_CollisionAliases(t *testing.T) {
	r := &recordingRunner{outputs: map[string]string{
		"worktree list --porcelain": "worktree /w\nbranch refs/heads/main\n\n",
	}}
	b := NewBackendWithRunner(r.run)

	got, err := b.CreateWorktree("/base", "main", "/envs/e/repo", "")
	if err != nil {
		t.Fatalf("CreateWorktree failed: %v", err)
	}
	if !strings.HasPrefix(got, "tracking/") || !strings.HasSuffix(got, "/main") {
		t.Errorf("aliased branch = %q, want tracking/<hex>/main", got)
	}

	last := r.lastCall()
	if last[2] != "-b" || last[3] != got || last[5] != "origin/main" {
		t.Errorf("issued %v, want worktree add -b %s /envs/e/repo origin/main", last, got)
	}
}

func TestCreateWorktree_Plain(t *testing.T) {
	r := &recordingRunner{outputs: map[string]string{
		"worktree list --porcelain": "worktree /w\nbranch refs/heads/other\n\n",
	}}
	b := NewBackendWithRunner(r.run)

	got, err := b.CreateWorktree("/base", "feature-x", "/envs/e/repo", "")
	if err != nil {
		t.Fatalf("CreateWorktree failed: %v", err)
	}
	if got != "feature-x" {
		t.Errorf("branch = %q, want %q", got, "feature-x")
	}

	want := "worktree add /envs/e/repo feature-x"
	if strings.Join(r.lastCall(), " ") != want {
		t.Errorf("issued %v, want %q", r.lastCall(), want)
	}
}

func TestRemoveWorktreeForce(t *testing.T) {
	r := &recordingRunner{outputs: map[string]string{}}
	b := NewBackendWithRunner(r.run)

	if err := b.RemoveWorktree("/base", "/envs/e/repo", true); err != nil {
		t.Fatalf("RemoveWorktree failed: %v", err)
	}
	want := "worktree remove /envs/e/repo --force"
	if strings.Join(r.lastCall(), " ") != want {
		t.Errorf("issued %v, want %q", r.lastCall(), want)
	}
}

func TestStatus(t *testing.T) {
	r := &recordingRunner{outputs: map[string]string{
		"branch --show-current":                  "feature-x\n",
		"status --porcelain":                     " M a.go\n?? b.go\n",
		"rev-list --left-right --count @{u}...HEAD": "1\t3\n",
	}}
	b := NewBackendWithRunner(r.run)

	st := b.Status("/w")
	if st.Err != "" {
		t.Fatalf("unexpected error: %s", st.Err)
	}
	if st.Branch != "feature-x" {
		t.Errorf("Branch = %q, want %q", st.Branch, "feature-x")
	}
	if !st.HasUncommitted || st.UncommittedCount != 2 {
		t.Errorf("uncommitted = (%v, %d), want (true, 2)", st.HasUncommitted, st.UncommittedCount)
	}
	if st.CommitsBehind != 1 || st.CommitsAhead != 3 {
		t.Errorf("ahead/behind = %d/%d, want 3/1", st.CommitsAhead, st.CommitsBehind)
	}
}

func TestStatus_NoUpstream(t *testing.T) {
	r := &recordingRunner{
		outputs: map[string]string{
			"branch --show-current": "main\n",
			"status --porcelain":    "",
		},
		errs: map[string]error{
			"rev-list --left-right --count @{u}...HEAD": cmdErr("rev-list"),
		},
	}
	b := NewBackendWithRunner(r.run)

	st := b.Status("/w")
	if st.Err != "" {
		t.Fatalf("missing upstream must not be an error, got %q", st.Err)
	}
	if st.CommitsAhead != 0 || st.CommitsBehind != 0 || st.HasUncommitted {
		t.Errorf("clean repo without upstream reported %+v", st)
	}
}

func TestStatus_ReportsErrorInField(t *testing.T) {
	r := &recordingRunner{
		outputs: map[string]string{},
		errs: map[string]error{
			"branch --show-current": cmdErr("branch"),
		},
	}
	b := NewBackendWithRunner(r.run)

	st := b.Status("/missing")
	if st.Err == "" {
		t.Fatal("expected error recorded in status field")
	}
}
