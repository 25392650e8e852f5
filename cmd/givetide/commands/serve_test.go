package commands

import "testing"

func TestResolveBind_ConfigValuesApply(t *testing.T) {
	t.Setenv("GIVETIDE_HOST", "0.0.0.0")
	t.Setenv("GIVETIDE_PORT", "9191")

	host, port := resolveBind("", 0)
	if host != "0.0.0.0" {
		t.Errorf("host = %q, want value from GIVETIDE_HOST", host)
	}
	if port != 9191 {
		t.Errorf("port = %d, want value from GIVETIDE_PORT", port)
	}
}

func TestResolveBind_FlagsWin(t *testing.T) {
	t.Setenv("GIVETIDE_HOST", "0.0.0.0")
	t.Setenv("GIVETIDE_PORT", "9191")

	host, port := resolveBind("192.168.1.5", 8081)
	if host != "192.168.1.5" || port != 8081 {
		t.Errorf("resolveBind = (%q, %d), explicit flags must win", host, port)
	}
}

func TestResolveBind_ZeroValuesFallThrough(t *testing.T) {
	t.Setenv("GIVETIDE_HOST", "")
	t.Setenv("GIVETIDE_PORT", "")

	host, port := resolveBind("", 0)
	if host != "" || port != 0 {
		t.Errorf("resolveBind = (%q, %d), want zero values so the server defaults apply", host, port)
	}
}
