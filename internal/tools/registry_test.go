package tools

import (
	"context"
	"testing"
)

func okExecute(ctx context.Context, args map[string]any) (*Output, error) {
	return Ok(nil, ""), nil
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	if reg == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if reg.Count() != 0 {
		t.Errorf("new registry should be empty, got %d tools", reg.Count())
	}
}

func TestRegisterAndGet(t *testing.T) {
	reg := NewRegistry()

	tool := &Tool{
		Name:        "test_tool",
		Description: "A test tool",
		Category:    CategoryGeneral,
		Execute:     okExecute,
	}

	if err := reg.Register(tool); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got := reg.Get("test_tool")
	if got == nil {
		t.Fatal("Get returned nil for registered tool")
	}
	if got.Name != "test_tool" {
		t.Errorf("got name %q, want %q", got.Name, "test_tool")
	}
	if got.Priority != 50 {
		t.Errorf("default priority = %d, want 50", got.Priority)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := NewRegistry()

	tool := &Tool{Name: "dupe", Category: CategoryGeneral, Execute: okExecute}

	if err := reg.Register(tool); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := reg.Register(tool); err == nil {
		t.Fatal("expected error for duplicate registration")
	}
}

func TestRegisterValidation(t *testing.T) {
	reg := NewRegistry()

	tests := []struct {
		name    string
		tool    *Tool
		wantErr error
	}{
		{
			name:    "empty name",
			tool:    &Tool{Name: "", Execute: okExecute},
			wantErr: ErrToolNameEmpty,
		},
		{
			name:    "nil execute",
			tool:    &Tool{Name: "test", Execute: nil},
			wantErr: ErrToolExecuteNil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := reg.Register(tt.tool); err == nil {
				t.Errorf("expected error %v, got nil", tt.wantErr)
			}
		})
	}
}

func TestGetByCategory(t *testing.T) {
	reg := NewRegistry()

	for _, tool := range []*Tool{
		{Name: "search1", Category: CategorySearch, Priority: 80, Execute: okExecute},
		{Name: "search2", Category: CategorySearch, Priority: 60, Execute: okExecute},
		{Name: "edit1", Category: CategoryEdit, Priority: 50, Execute: okExecute},
	} {
		reg.MustRegister(tool)
	}

	search := reg.GetByCategory(CategorySearch)
	if len(search) != 2 {
		t.Errorf("expected 2 search tools, got %d", len(search))
	}
	// Sorted by priority, highest first.
	if search[0].Name != "search1" {
		t.Errorf("expected search1 first (priority 80), got %s", search[0].Name)
	}
}

func TestExecute(t *testing.T) {
	reg := NewRegistry()

	tool := &Tool{
		Name:     "echo",
		Category: CategoryGeneral,
		Execute: func(ctx context.Context, args map[string]any) (*Output, error) {
			msg, _ := args["message"].(string)
			return Ok("Echo: "+msg, "echoed"), nil
		},
		Schema: Schema{
			Required:   []string{"message"},
			Properties: map[string]Property{"message": {Type: "string"}},
		},
	}
	reg.MustRegister(tool)

	out, err := reg.Execute(context.Background(), "echo", map[string]any{"message": "hello"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !out.Success || out.Result != "Echo: hello" {
		t.Errorf("out = %+v", out)
	}

	// Missing required arg becomes a validation diagnostic.
	out, err = reg.Execute(context.Background(), "echo", map[string]any{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Success || len(out.Diagnostics) == 0 || out.Diagnostics[0].Kind != DiagValidation {
		t.Errorf("expected validation diagnostic, got %+v", out)
	}

	if _, err := reg.Execute(context.Background(), "nonexistent", map[string]any{}); err == nil {
		t.Error("expected error for nonexistent tool")
	}
}

func TestExecuteCancelledContext(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(&Tool{Name: "noop", Category: CategoryGeneral, Execute: okExecute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := reg.Execute(ctx, "noop", map[string]any{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.Success || out.Diagnostics[0].Kind != DiagCancelled {
		t.Errorf("expected cancelled diagnostic, got %+v", out)
	}
}

func TestArgHelpers(t *testing.T) {
	args := map[string]any{
		"s":    "value",
		"f":    float64(7),
		"i":    3,
		"b":    true,
		"list": []any{"a", "b", 1},
	}

	if got := StringArg(args, "s", "d"); got != "value" {
		t.Errorf("StringArg = %q", got)
	}
	if got := StringArg(args, "missing", "d"); got != "d" {
		t.Errorf("StringArg default = %q", got)
	}
	if got := IntArg(args, "f", 0); got != 7 {
		t.Errorf("IntArg float64 = %d", got)
	}
	if got := IntArg(args, "i", 0); got != 3 {
		t.Errorf("IntArg int = %d", got)
	}
	if got := BoolArg(args, "b", false); !got {
		t.Error("BoolArg = false")
	}
	if got := StringsArg(args, "list"); len(got) != 2 || got[0] != "a" {
		t.Errorf("StringsArg = %v", got)
	}
}
