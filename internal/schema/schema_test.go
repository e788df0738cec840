package schema

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestBuildSchema(t *testing.T) {
	root := &cobra.Command{Use: "coinctl"}
	child := &cobra.Command{Use: "history", Short: "submission history"}
	leaf := &cobra.Command{Use: "list", Short: "list submissions"}
	leaf.Flags().Int("limit", 20, "limit results")
	child.AddCommand(leaf)
	root.AddCommand(child)

	s, err := Build(root, "history list")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if s.Path != "coinctl history list" {
		t.Fatalf("unexpected path: %s", s.Path)
	}
	if len(s.Flags) != 1 || s.Flags[0].Name != "limit" {
		t.Fatalf("unexpected flags: %+v", s.Flags)
	}
}

func TestBuildSchemaAnnotations(t *testing.T) {
	root := &cobra.Command{Use: "coinctl"}
	send := &cobra.Command{
		Use:   "send <component> <destination> <amount>",
		Short: "send tokens",
		Annotations: map[string]string{
			AnnotationArgs:    "component destination amount",
			AnnotationShape:   "authorized_transfer_out",
			AnnotationMutates: "true",
		},
	}
	root.AddCommand(send)

	s, err := Build(root, "send")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(s.Args) != 3 || s.Args[1] != "destination" {
		t.Fatalf("unexpected args: %v", s.Args)
	}
	if !s.Mutates || s.Shape != "authorized_transfer_out" {
		t.Fatalf("unexpected annotations: %+v", s)
	}
	if _, err := Build(root, "missing"); err == nil {
		t.Fatal("expected error for unknown command")
	}
}
