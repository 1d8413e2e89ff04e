package browser

import (
	"strings"
	"testing"
)

func TestFetchScript_QuotesLocator(t *testing.T) {
	script, err := fetchScript(`blob:https://x.com/a"); alert(1); ("`)
	if err != nil {
		t.Fatalf("fetchScript: %v", err)
	}
	if !strings.Contains(script, `fetch("blob:https://x.com/a\"); alert(1); (\"")`) {
		t.Errorf("locator not quoted as a JS string:\n%s", script)
	}
}

func TestFrameScript_EmbedsMaxEdge(t *testing.T) {
	script, err := frameScript("blob:https://x.com/v", 640)
	if err != nil {
		t.Fatalf("frameScript: %v", err)
	}
	if !strings.Contains(script, `const src = "blob:https://x.com/v", max = 640;`) {
		t.Errorf("unexpected script header:\n%s", script)
	}
	if !strings.Contains(script, `toDataURL("image/jpeg", 0.85)`) {
		t.Error("frame must be encoded as JPEG")
	}
}
