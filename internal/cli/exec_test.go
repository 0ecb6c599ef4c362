package cli

import (
	"context"
	"testing"

	"github.com/nextlevelbuilder/porter/internal/access"
	"github.com/nextlevelbuilder/porter/internal/portererr"
)

func TestExecute_Success(t *testing.T) {
	inv := Invocation{
		Command:     "echo",
		UserArgs:    []string{"hello"},
		TimeoutSecs: 5,
	}
	result, err := Execute(context.Background(), "test", inv)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if result.ExitCode == nil || *result.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %+v", result.ExitCode)
	}
	if result.Stdout != "hello\n" {
		t.Fatalf("stdout = %q, want %q", result.Stdout, "hello\n")
	}
}

func TestExecute_Timeout(t *testing.T) {
	inv := Invocation{
		Command:     "sleep",
		UserArgs:    []string{"10"},
		TimeoutSecs: 1,
	}
	result, err := Execute(context.Background(), "test", inv)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !result.TimedOut {
		t.Fatalf("expected timed_out=true, got %+v", result)
	}
	if result.ExitCode != nil {
		t.Fatalf("expected no exit code on timeout, got %v", *result.ExitCode)
	}
}

func TestExecute_NonZeroExit(t *testing.T) {
	inv := Invocation{
		Command:     "false",
		TimeoutSecs: 5,
	}
	result, err := Execute(context.Background(), "test", inv)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if result.ExitCode == nil || *result.ExitCode == 0 {
		t.Fatalf("expected non-zero exit code, got %+v", result.ExitCode)
	}
}

func TestExecute_AccessDenied(t *testing.T) {
	inv := Invocation{
		Command:    "aws",
		SubcmdPath: []string{"s3", "rm"},
		Rule:       access.Rule{Deny: [][]string{{"s3", "rm"}}},
	}
	_, err := Execute(context.Background(), "aws", inv)
	if err == nil {
		t.Fatalf("expected AccessDeniedError")
	}
	denied, ok := err.(*portererr.AccessDeniedError)
	if !ok {
		t.Fatalf("expected *portererr.AccessDeniedError, got %T", err)
	}
	if denied.Reason != "explicit deny: s3 rm" {
		t.Fatalf("reason = %q", denied.Reason)
	}
}

func TestBuildArgv_Order(t *testing.T) {
	inv := Invocation{
		SubcmdPath:  []string{"s3", "ls"},
		InjectFlags: []string{"--no-cli-pager"},
		UserArgs:    []string{"bucket-name"},
	}
	got := buildArgv(inv)
	want := []string{"s3", "ls", "--no-cli-pager", "bucket-name"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
