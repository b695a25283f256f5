// Package templates renders the HTML fragments returned to HTMX requests.
package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// ErrorAlert renders a dismissible error box with the user-facing message,
// the suggested action and the support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<div class="alert alert-error" role="alert" data-code="`+
			templ.EscapeString(code)+`"><p class="alert-message">`+
			templ.EscapeString(message)+`</p>`)
		if err != nil {
			return err
		}
		if action != "" {
			if _, err := io.WriteString(w, `<p class="alert-action">`+templ.EscapeString(action)+`</p>`); err != nil {
				return err
			}
		}
		_, err = io.WriteString(w, `<small class="alert-code">Error code: `+templ.EscapeString(code)+
			`</small><button type="button" class="alert-close" onclick="this.parentElement.remove()">&times;</button></div>`)
		return err
	})
}
