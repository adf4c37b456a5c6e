// Package validation provides rule-based input validation with a
// pipe-separated rule syntax.
//
// # Basic Usage
//
//	v := validation.Make(map[string]string{
//	    "name":  "Alice",
//	    "email": "alice@example.com",
//	}, validation.Rules{
//	    "name":  "required|min:2|max:100",
//	    "email": "required|email",
//	})
//
//	if v.Fails() {
//	    errs := v.Errors() // *Errors, JSON: {"errors": {"field": ["msg"]}}
//	}
//
// # With the bus
//
// The error bag implements the error interface, so a command can expose
// its rules through Validate() and let the validation behavior
// short-circuit the dispatch:
//
//	func (c CreateUser) Validate() error {
//	    return validation.Make(map[string]string{
//	        "name":  c.Name,
//	        "email": c.Email,
//	    }, validation.Rules{
//	        "name":  "required|min:2",
//	        "email": "required|email",
//	    }).Err()
//	}
//
// The transport layer recognizes *Errors with errors.As and renders a 422
// with the error bag as the body.
package validation
