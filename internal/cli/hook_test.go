package cli

import (
	"strings"
	"testing"
)

func TestGenerateHookScript(t *testing.T) {
	script := generateHookScript("critical", "text", "")

	for _, want := range []string{
		hookMarkerStart,
		hookMarkerEnd,
		"panel review local --range @{upstream}..HEAD --fail-on critical --format text\n",
		"PANEL_EXIT=$?",
		"exit 1",
		"allowing push",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q:\n%s", want, script)
		}
	}
	if strings.Contains(script, "--specialists") {
		t.Error("empty specialists should not be passed")
	}
}

func TestGenerateHookScript_CustomFlags(t *testing.T) {
	script := generateHookScript("major", "json", "logic,performance")

	for _, want := range []string{"--fail-on major", "--format json", "--specialists logic,performance"} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q", want)
		}
	}
}

func TestReplacePanelSection_NoExisting(t *testing.T) {
	existing := "#!/bin/sh\nsome-other-hook\n"
	section := generateHookScript("critical", "text", "")

	result := replacePanelSection(existing, section)
	if !strings.HasPrefix(result, existing) {
		t.Error("existing content should be preserved")
	}
	if !strings.Contains(result, hookMarkerStart) {
		t.Error("panel section should be appended")
	}
}

func TestReplacePanelSection_NoTrailingNewline(t *testing.T) {
	result := replacePanelSection("#!/bin/sh\nother", generateHookScript("critical", "text", ""))
	if !strings.Contains(result, "other\n"+hookMarkerStart) {
		t.Errorf("section should start on its own line:\n%s", result)
	}
}

func TestReplacePanelSection_Existing(t *testing.T) {
	old := generateHookScript("minor", "text", "")
	existing := "#!/bin/sh\nbefore\n" + old + "after\n"

	result := replacePanelSection(existing, generateHookScript("critical", "json", ""))
	if strings.Contains(result, "--fail-on minor") {
		t.Error("old section should be replaced")
	}
	if !strings.Contains(result, "--fail-on critical --format json") {
		t.Error("new section missing")
	}
	if strings.Count(result, hookMarkerStart) != 1 {
		t.Error("there should be exactly one panel section")
	}
	if !strings.Contains(result, "before\n") || !strings.HasSuffix(result, "after\n") {
		t.Errorf("surrounding content lost:\n%s", result)
	}
}

func TestRemovePanelSection(t *testing.T) {
	section := generateHookScript("critical", "text", "")
	existing := "#!/bin/sh\nbefore\n" + section + "after\n"

	result := removePanelSection(existing)
	if strings.Contains(result, hookMarkerStart) || strings.Contains(result, "panel review") {
		t.Errorf("panel section not removed:\n%s", result)
	}
	if result != "#!/bin/sh\nbefore\nafter\n" {
		t.Errorf("result = %q", result)
	}
}

func TestRemovePanelSection_NotPresent(t *testing.T) {
	existing := "#!/bin/sh\necho hi\n"
	if got := removePanelSection(existing); got != existing {
		t.Errorf("content changed: %q", got)
	}
}
