package validation_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/km-arc/go-mediator/framework/validation"
)

func TestValidator_PassingData(t *testing.T) {
	v := validation.Make(map[string]string{
		"name":  "Ada",
		"email": "ada@example.com",
		"age":   "36",
	}, validation.Rules{
		"name":  "required|alpha|min:2|max:50",
		"email": "required|email",
		"age":   "required|integer|gte:18",
	})

	if v.Fails() {
		t.Errorf("expected pass, got %v", v.Errors().Bag)
	}
	if err := v.Err(); err != nil {
		t.Errorf("Err() = %v, want nil on pass", err)
	}
}

func TestValidator_FailingData(t *testing.T) {
	v := validation.Make(map[string]string{
		"name":  "",
		"email": "not-an-email",
	}, validation.Rules{
		"name":  "required",
		"email": "required|email",
	})

	if v.Passes() {
		t.Fatal("expected failure")
	}
	bag := v.Errors()
	if bag.First("name") == "" || bag.First("email") == "" {
		t.Errorf("both fields should carry messages, got %v", bag.Bag)
	}
	if !strings.Contains(bag.First("name"), "name") {
		t.Errorf("message should name the field: %q", bag.First("name"))
	}
}

func TestValidator_ErrIsRecognizableErrorsBag(t *testing.T) {
	err := validation.Make(map[string]string{"name": ""}, validation.Rules{
		"name": "required",
	}).Err()

	var bag *validation.Errors
	if !errors.As(err, &bag) {
		t.Fatalf("Err() = %T, want *Errors", err)
	}
	if !bag.Has() {
		t.Error("bag should report errors")
	}
}

func TestValidator_StopsOnFirstFailurePerField(t *testing.T) {
	v := validation.Make(map[string]string{"age": "abc"}, validation.Rules{
		"age": "numeric|gte:18",
	})

	v.Fails()
	if got := len(v.Errors().Bag["age"]); got != 1 {
		t.Errorf("field carries %d messages, want the first failure only", got)
	}
}

func TestValidator_SometimesSkipsAbsentFields(t *testing.T) {
	v := validation.Make(map[string]string{}, validation.Rules{
		"nickname": "sometimes|min:3",
	})
	if v.Fails() {
		t.Errorf("absent optional field should pass, got %v", v.Errors().Bag)
	}

	present := validation.Make(map[string]string{"nickname": "ab"}, validation.Rules{
		"nickname": "sometimes|min:3",
	})
	if present.Passes() {
		t.Error("present optional field should still be checked")
	}
}

func TestValidator_ComparisonAndSetRules(t *testing.T) {
	cases := []struct {
		name  string
		value string
		rule  string
		pass  bool
	}{
		{"in member", "staging", "in:local,staging,production", true},
		{"in outsider", "qa", "in:local,staging,production", false},
		{"gt pass", "10", "numeric|gt:5", true},
		{"gt fail", "5", "numeric|gt:5", false},
		{"lte pass", "5", "numeric|lte:5", true},
		{"boolean pass", "yes", "boolean", true},
		{"boolean fail", "maybe", "boolean", false},
		{"url pass", "https://example.com", "url", true},
		{"url fail", "example.com", "url", false},
	}

	for _, tc := range cases {
		v := validation.Make(map[string]string{"field": tc.value}, validation.Rules{
			"field": tc.rule,
		})
		if v.Passes() != tc.pass {
			t.Errorf("%s: value %q with rule %q: pass=%v, want %v",
				tc.name, tc.value, tc.rule, v.Passes(), tc.pass)
		}
	}
}

func TestValidator_SameRuleComparesFields(t *testing.T) {
	v := validation.Make(map[string]string{
		"password":         "secret1",
		"password_confirm": "secret2",
	}, validation.Rules{
		"password_confirm": "same:password",
	})
	if v.Passes() {
		t.Error("mismatched fields should fail the same rule")
	}
}
