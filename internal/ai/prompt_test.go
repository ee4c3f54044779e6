package ai

import (
	"strings"
	"testing"

	"voicegate/internal/tenants"
)

func TestBuildSystemPrompt(t *testing.T) {
	profile := tenants.AIProfile{
		Role:         tenants.AIRoleReceptionist,
		SystemPrompt: "Mention the weekend discount when relevant.",
	}
	biz := tenants.BusinessProfile{
		BusinessName: "Shree Dental",
		BusinessType: "dental clinic",
		Services:     "cleaning, braces",
		Hours:        "Mon-Sat 10:00-19:00",
	}

	prompt := BuildSystemPrompt(profile, biz, LangHindi)

	for _, want := range []string{
		"Reply only in Hindi",
		"Shree Dental",
		"Mon-Sat 10:00-19:00",
		"receptionist",
		"weekend discount",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	// Tenant text must come after the global rules so it cannot override them.
	if strings.Index(prompt, "voice assistant") > strings.Index(prompt, "weekend discount") {
		t.Fatalf("global rules must precede profile instructions")
	}
}

func TestBuildSystemPrompt_UnknownLanguageFallsBack(t *testing.T) {
	prompt := BuildSystemPrompt(tenants.AIProfile{}, tenants.BusinessProfile{}, "fr")
	if !strings.Contains(prompt, "Reply only in English") {
		t.Fatalf("expected English fallback, got:\n%s", prompt)
	}
}

func TestGreeting(t *testing.T) {
	if g := Greeting(LangGujarati); g == Greeting(LangEnglish) {
		t.Fatalf("expected a Gujarati greeting")
	}
	if g := Greeting("unknown"); g != Greeting(LangEnglish) {
		t.Fatalf("unknown language should greet in English, got %q", g)
	}
}
