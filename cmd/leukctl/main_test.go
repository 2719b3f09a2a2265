package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/leukemia-dashboard/internal/devserver/devservertest"
	"github.com/jwalitptl/leukemia-dashboard/pkg/errors"
)

type harness struct {
	t      *testing.T
	cfgDir string
	url    string
	out    bytes.Buffer
}

func newHarness(t *testing.T) (*harness, *devservertest.Env) {
	env := devservertest.Start(t)
	dir := t.TempDir()
	t.Setenv("LEUKEMIA_SESSION_BACKEND", "file")
	t.Setenv("LEUKEMIA_SESSION_PATH", filepath.Join(dir, "session.json"))
	t.Setenv("LEUKEMIA_LOG_LEVEL", "error")
	return &harness{t: t, cfgDir: dir, url: env.URL}, env
}

func (h *harness) run(args ...string) error {
	h.out.Reset()
	base := []string{"leukctl", "--config", h.cfgDir, "--base-url", h.url}
	return newApp(&h.out).Run(append(base, args...))
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	require.NoError(h.t, h.run(args...), h.out.String())
	return h.out.String()
}

var patientArgs = []string{
	"--phone", "5550100",
	"--email", "p@example.org",
	"--gender", "Male",
	"--age", "12",
	"--address", "Ward 7",
	"--blood-type", "b-",
	"--emergency-name", "Parent",
	"--emergency-phone", "5550111",
}

func TestSessionLifecycle(t *testing.T) {
	h, env := newHarness(t)
	email, _ := env.Account(t)

	out := h.mustRun("login", "--email", email, "--password", devservertest.DefaultPassword)
	assert.Contains(t, out, "signed in as")

	out = h.mustRun("whoami")
	assert.Contains(t, out, email)

	out = h.mustRun("whoami", "--cached")
	assert.Contains(t, out, email)

	h.mustRun("logout")
	err := h.run("patients", "list")
	require.Error(t, err)
	assert.True(t, errors.IsAuth(err))
}

func TestRegisterRejectsMismatchedConfirmation(t *testing.T) {
	h, _ := newHarness(t)
	err := h.run("register", "--email", "x@example.org", "--name", "X",
		"--password", "long-enough-pw", "--confirm", "different-pw")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	h.mustRun("register", "--email", "x@example.org", "--name", "X", "--password", "long-enough-pw")
	h.mustRun("login", "--email", "x@example.org", "--password", "long-enough-pw")
}

func TestPatientWorkflow(t *testing.T) {
	h, env := newHarness(t)
	email, _ := env.Account(t)
	h.mustRun("login", "--email", email, "--password", devservertest.DefaultPassword)

	assert.Equal(t, "1\n", h.mustRun("patients", "next-id"))

	create := append([]string{"patients", "create", "--fullname", "Zed Young"}, patientArgs...)
	out := h.mustRun(create...)
	assert.Contains(t, out, `"id": 1`)
	assert.Contains(t, out, `"blood_type": "B-"`)

	create = append([]string{"patients", "create", "--id", "5", "--fullname", "Amy Old"}, patientArgs...)
	h.mustRun(create...)

	out = h.mustRun("patients", "list", "--sort", "fullname")
	require.Less(t, strings.Index(out, "Amy Old"), strings.Index(out, "Zed Young"))
	assert.Contains(t, out, "showing 2 of 2")

	out = h.mustRun("patients", "list", "--search", "zed", "--all")
	assert.NotContains(t, out, "Amy Old")
	assert.Contains(t, out, "showing 1 of 2")

	h.mustRun("patients", "update", "--age", "13", "1")
	out = h.mustRun("patients", "get", "1")
	assert.Contains(t, out, `"age": 13`)
	assert.Contains(t, out, `"fullname": "Zed Young"`)

	out = h.mustRun("reports", "add", "--title", "CBC", "--content", "normal", "--reload", "1")
	assert.Contains(t, out, `"medication": "N/A"`)

	pic := filepath.Join(t.TempDir(), "face.png")
	require.NoError(t, os.WriteFile(pic, []byte("png"), 0o600))
	out = h.mustRun("patients", "picture", "1", pic)
	assert.True(t, strings.HasPrefix(out, h.url+"media/patients/profile_pictures/"), out)

	smear := filepath.Join(t.TempDir(), "smear.jpg")
	require.NoError(t, os.WriteFile(smear, []byte("smear-bytes"), 0o600))
	out = h.mustRun("detect", "1", smear)
	assert.Contains(t, out, h.url+"media/annotated/smear_annotated.jpg")

	h.mustRun("patients", "delete", "5")
	err := h.run("patients", "get", "5")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestDetectRequiresImages(t *testing.T) {
	h, _ := newHarness(t)
	assert.Error(t, h.run("detect", "1"))
	assert.Error(t, h.run("detect", "x", "a.jpg"))
}
