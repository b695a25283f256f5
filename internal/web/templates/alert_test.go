package templates

import (
	"context"
	"strings"
	"testing"
)

func TestErrorAlert(t *testing.T) {
	var b strings.Builder
	if err := ErrorAlert(`Bad <file>`, "Try again", "WB001").Render(context.Background(), &b); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := b.String()

	for _, want := range []string{`data-code="WB001"`, "Bad &lt;file&gt;", "Try again", "Error code: WB001"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestErrorAlert_NoAction(t *testing.T) {
	var b strings.Builder
	if err := ErrorAlert("Oops", "", "ERR000").Render(context.Background(), &b); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if strings.Contains(b.String(), "alert-action") {
		t.Errorf("output has an action paragraph: %s", b.String())
	}
}
