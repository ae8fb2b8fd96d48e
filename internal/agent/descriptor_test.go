package agent

import (
	"strings"
	"testing"
	"time"
)

const reviewerYAML = `
name: reviewer
description: Reviews diffs
intelligence: hard
prompt: Review the changes.
timeout: 90s
chainable: true
tools:
  grep: allow
  run_command: deny
  rename_symbol:
    permission: restricted
    restrictions:
      scope: file
parameters:
  - name: focus
    description: Area to review
    enum: [correctness, style]
    default: correctness
  - name: target
    description: File to review
    required: true
`

func TestParseDescriptor(t *testing.T) {
	d, err := ParseDescriptor([]byte(reviewerYAML), "reviewer.yaml")
	if err != nil {
		t.Fatalf("ParseDescriptor failed: %v", err)
	}
	if d.Name != "reviewer" {
		t.Errorf("name = %q, want reviewer", d.Name)
	}
	if d.Timeout.Std() != 90*time.Second {
		t.Errorf("timeout = %v, want 90s", d.Timeout.Std())
	}
	if !d.Chainable {
		t.Error("chainable should be true")
	}
	if len(d.Parameters) != 2 {
		t.Fatalf("got %d parameters, want 2", len(d.Parameters))
	}
	if d.Parameters[0].Name != "focus" || d.Parameters[1].Name != "target" {
		t.Errorf("parameter order not preserved: %q, %q", d.Parameters[0].Name, d.Parameters[1].Name)
	}
}

func TestParseDescriptorToolForms(t *testing.T) {
	d, err := ParseDescriptor([]byte(reviewerYAML), "reviewer.yaml")
	if err != nil {
		t.Fatalf("ParseDescriptor failed: %v", err)
	}

	// Scalar form.
	if d.Tools["grep"].Permission != PermissionAllow {
		t.Errorf("grep permission = %q, want allow", d.Tools["grep"].Permission)
	}
	if d.Tools["run_command"].Permission != PermissionDeny {
		t.Errorf("run_command permission = %q, want deny", d.Tools["run_command"].Permission)
	}

	// Object form with restrictions.
	rename := d.Tools["rename_symbol"]
	if rename.Permission != PermissionRestricted {
		t.Errorf("rename_symbol permission = %q, want restricted", rename.Permission)
	}
	if rename.Restrictions["scope"] != "file" {
		t.Errorf("rename_symbol scope = %q, want file", rename.Restrictions["scope"])
	}
}

func TestParseDescriptorDefaultTimeout(t *testing.T) {
	d, err := ParseDescriptor([]byte("name: a\nprompt: do things\n"), "a.yaml")
	if err != nil {
		t.Fatalf("ParseDescriptor failed: %v", err)
	}
	if d.Timeout.Std() != defaultTimeout {
		t.Errorf("timeout = %v, want default %v", d.Timeout.Std(), defaultTimeout)
	}
}

func TestParseDescriptorNumericTimeout(t *testing.T) {
	d, err := ParseDescriptor([]byte("name: a\nprompt: p\ntimeout: 30\n"), "a.yaml")
	if err != nil {
		t.Fatalf("ParseDescriptor failed: %v", err)
	}
	if d.Timeout.Std() != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", d.Timeout.Std())
	}
}

func TestParseDescriptorUnknownFieldIgnored(t *testing.T) {
	d, err := ParseDescriptor([]byte("name: a\nprompt: p\nfuture_field: whatever\n"), "a.yaml")
	if err != nil {
		t.Fatalf("unknown field should warn, not fail: %v", err)
	}
	if d.Name != "a" {
		t.Errorf("name = %q, want a", d.Name)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing name", "prompt: p\n", "name is required"},
		{"empty prompt", "name: a\n", "prompt must not be empty"},
		{"negative timeout", "name: a\nprompt: p\ntimeout: -5s\n", "timeout must be positive"},
		{"duplicate parameter", "name: a\nprompt: p\nparameters:\n  - name: x\n  - name: x\n", "duplicate parameter"},
		{"bad permission", "name: a\nprompt: p\ntools:\n  grep: sometimes\n", "unknown tool permission"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDescriptor([]byte(tt.yaml), tt.name+".yaml")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestToolAllowed(t *testing.T) {
	d, err := ParseDescriptor([]byte(reviewerYAML), "reviewer.yaml")
	if err != nil {
		t.Fatalf("ParseDescriptor failed: %v", err)
	}

	if ok, _ := d.ToolAllowed("run_command"); ok {
		t.Error("run_command should be denied")
	}
	if ok, _ := d.ToolAllowed("grep"); !ok {
		t.Error("grep should be allowed")
	}
	// Absent tools default to allow.
	if ok, _ := d.ToolAllowed("tree"); !ok {
		t.Error("unlisted tool should default to allow")
	}
	ok, restrictions := d.ToolAllowed("rename_symbol")
	if !ok || restrictions["scope"] != "file" {
		t.Errorf("restricted tool: allowed=%v restrictions=%v", ok, restrictions)
	}
}

func TestValidateParameters(t *testing.T) {
	d, err := ParseDescriptor([]byte(reviewerYAML), "reviewer.yaml")
	if err != nil {
		t.Fatalf("ParseDescriptor failed: %v", err)
	}

	t.Run("missing required", func(t *testing.T) {
		_, err := d.ValidateParameters(map[string]string{"focus": "style"})
		if err == nil || !strings.Contains(err.Error(), "target") {
			t.Errorf("expected missing-parameter error for target, got %v", err)
		}
	})

	t.Run("default filled", func(t *testing.T) {
		out, err := d.ValidateParameters(map[string]string{"target": "main.go"})
		if err != nil {
			t.Fatalf("ValidateParameters failed: %v", err)
		}
		if out["focus"] != "correctness" {
			t.Errorf("focus default = %q, want correctness", out["focus"])
		}
	})

	t.Run("enum enforced", func(t *testing.T) {
		_, err := d.ValidateParameters(map[string]string{"target": "main.go", "focus": "vibes"})
		if err == nil || !strings.Contains(err.Error(), "must be one of") {
			t.Errorf("expected enum error, got %v", err)
		}
	})

	t.Run("input not mutated", func(t *testing.T) {
		in := map[string]string{"target": "main.go"}
		if _, err := d.ValidateParameters(in); err != nil {
			t.Fatalf("ValidateParameters failed: %v", err)
		}
		if _, ok := in["focus"]; ok {
			t.Error("caller map should not gain defaults")
		}
	})
}
