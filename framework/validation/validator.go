package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ── Errors ───────────────────────────────────────────────────────────────────

// Errors is the validation error bag.
// JSON output: {"errors": {"field": ["msg1", "msg2"]}}
//
// Errors implements the error interface so a failed validation can travel
// through the bus as an ordinary business failure and be recognized at the
// transport boundary with errors.As.
type Errors struct {
	Bag map[string][]string `json:"errors"`
}

func (e *Errors) add(field, msg string) {
	if e.Bag == nil {
		e.Bag = make(map[string][]string)
	}
	e.Bag[field] = append(e.Bag[field], msg)
}

// Has returns true if there are any errors.
func (e *Errors) Has() bool { return len(e.Bag) > 0 }

// First returns the first error for a field.
func (e *Errors) First(field string) string {
	if msgs, ok := e.Bag[field]; ok && len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Error implements the error interface.
func (e *Errors) Error() string {
	fields := make([]string, 0, len(e.Bag))
	for f := range e.Bag {
		fields = append(fields, f)
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(fields, ", "))
}

// ── Validator ────────────────────────────────────────────────────────────────

// Rules is a map of field → pipe-separated rule string.
// e.g. Rules{"email": "required|email", "age": "required|numeric|gte:18"}
type Rules map[string]string

// Validator validates a flat map of input values.
type Validator struct {
	data   map[string]string
	rules  Rules
	errors *Errors
}

// Make creates a new Validator for the given data and rules.
func Make(data map[string]string, rules Rules) *Validator {
	return &Validator{
		data:   data,
		rules:  rules,
		errors: &Errors{},
	}
}

// Fails runs validation and returns true if any rule fails.
func (v *Validator) Fails() bool {
	v.validate()
	return v.errors.Has()
}

// Passes runs validation and returns true if all rules pass.
func (v *Validator) Passes() bool { return !v.Fails() }

// Errors returns the validation error bag.
func (v *Validator) Errors() *Errors { return v.errors }

// Err returns the error bag as an error, or nil when validation passes.
// Convenient for Validate() implementations on commands:
//
//	func (c CreateUser) Validate() error {
//	    return validation.Make(data, rules).Err()
//	}
func (v *Validator) Err() error {
	if v.Fails() {
		return v.errors
	}
	return nil
}

// ── Core validation loop ─────────────────────────────────────────────────────

func (v *Validator) validate() {
	for field, ruleStr := range v.rules {
		value := v.data[field]

		for _, rule := range strings.Split(ruleStr, "|") {
			rule = strings.TrimSpace(rule)
			if rule == "" {
				continue
			}

			// Parse rule name and optional parameter: min:3 → name=min, param=3
			name, param, _ := strings.Cut(rule, ":")

			if name == "sometimes" {
				// Skip remaining rules for absent optional fields.
				if value == "" {
					break
				}
				continue
			}

			check, ok := checks[name]
			if !ok {
				continue // unknown rule names pass silently
			}
			if msg := check(value, param, v.data); msg != "" {
				v.errors.add(field, fmt.Sprintf(msg, field))
				break // stop on first failure per field
			}
		}
	}
}

// checkFunc returns "" on pass, or a message with one %s verb for the
// field name on failure.
type checkFunc func(value, param string, data map[string]string) string

var checks = map[string]checkFunc{
	"required": func(value, _ string, _ map[string]string) string {
		if strings.TrimSpace(value) == "" {
			return "The %s field is required."
		}
		return ""
	},
	"numeric": func(value, _ string, _ map[string]string) string {
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return "The %s must be a number."
		}
		return ""
	},
	"integer": func(value, _ string, _ map[string]string) string {
		if _, err := strconv.Atoi(value); err != nil {
			return "The %s must be an integer."
		}
		return ""
	},
	"boolean": func(value, _ string, _ map[string]string) string {
		switch strings.ToLower(value) {
		case "true", "false", "1", "0", "yes", "no":
			return ""
		}
		return "The %s field must be true or false."
	},
	"email": func(value, _ string, _ map[string]string) string {
		if _, err := mail.ParseAddress(value); err != nil {
			return "The %s must be a valid email address."
		}
		return ""
	},
	"url": func(value, _ string, _ map[string]string) string {
		if !regexp.MustCompile(`^https?://`).MatchString(value) {
			return "The %s must be a valid URL."
		}
		return ""
	},
	"min": func(value, param string, _ map[string]string) string {
		n, _ := strconv.Atoi(param)
		if utf8.RuneCountInString(value) < n {
			return fmt.Sprintf("The %%s must be at least %d characters.", n)
		}
		return ""
	},
	"max": func(value, param string, _ map[string]string) string {
		n, _ := strconv.Atoi(param)
		if utf8.RuneCountInString(value) > n {
			return fmt.Sprintf("The %%s may not be greater than %d characters.", n)
		}
		return ""
	},
	"in": func(value, param string, _ map[string]string) string {
		for _, a := range strings.Split(param, ",") {
			if strings.TrimSpace(a) == value {
				return ""
			}
		}
		return "The selected %s is invalid."
	},
	"alpha": func(value, _ string, _ map[string]string) string {
		if !regexp.MustCompile(`^[a-zA-Z]+$`).MatchString(value) {
			return "The %s may only contain letters."
		}
		return ""
	},
	"alpha_num": func(value, _ string, _ map[string]string) string {
		if !regexp.MustCompile(`^[a-zA-Z0-9]+$`).MatchString(value) {
			return "The %s may only contain letters and numbers."
		}
		return ""
	},
	"regex": func(value, param string, _ map[string]string) string {
		re, err := regexp.Compile(param)
		if err != nil || !re.MatchString(value) {
			return "The %s format is invalid."
		}
		return ""
	},
	"same": func(value, param string, data map[string]string) string {
		if data[param] != value {
			return fmt.Sprintf("The %%s and %s must match.", param)
		}
		return ""
	},
	"gt":  compare("greater than", func(a, b float64) bool { return a > b }),
	"gte": compare("greater than or equal to", func(a, b float64) bool { return a >= b }),
	"lt":  compare("less than", func(a, b float64) bool { return a < b }),
	"lte": compare("less than or equal to", func(a, b float64) bool { return a <= b }),
}

func compare(word string, ok func(a, b float64) bool) checkFunc {
	return func(value, param string, _ map[string]string) string {
		f, _ := strconv.ParseFloat(value, 64)
		t, _ := strconv.ParseFloat(param, 64)
		if !ok(f, t) {
			return fmt.Sprintf("The %%s must be %s %s.", word, param)
		}
		return ""
	}
}
