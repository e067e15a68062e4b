package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"go.senan.xyz/trackdex/cmd/internal/testing/testcmds"
)

func TestMain(m *testing.M) {
	testcmds.RegisterTransport()

	os.Exit(testscript.RunMain(m, map[string]func() int{
		"trackdex": func() int { main(); return 0 },
		"tag":      func() int { testcmds.Tag(); return 0 },
		"touch":    func() int { testcmds.Touch(); return 0 },
		"rand":     func() int { testcmds.Rand(); return 0 },
	}))
}

func TestScripts(t *testing.T) {
	t.Parallel()

	testscript.Run(t, testscript.Params{
		Dir:                 "testdata/scripts",
		RequireExplicitExec: true,
		Setup: func(env *testscript.Env) error {
			env.Setenv("TRACKDEX_DB_PATH", filepath.Join(env.WorkDir, "db", "trackdex.db"))
			return nil
		},
	})
}
