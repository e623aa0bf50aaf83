package utils_test

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/ssoauth/ssoauth/internal/utils"

	"gotest.tools/v3/assert"
)

func TestGetSecret(t *testing.T) {
	// Setup
	path := filepath.Join(t.TempDir(), "secret")
	err := os.WriteFile(path, []byte("       secret       \n"), 0600)
	assert.NilError(t, err)

	// Get from config
	assert.Equal(t, "mysecret", utils.GetSecret("mysecret", ""))

	// Get from file
	assert.Equal(t, "secret", utils.GetSecret("", path))

	// Config takes precedence
	assert.Equal(t, "mysecret", utils.GetSecret("mysecret", path))

	// None
	assert.Equal(t, "", utils.GetSecret("", ""))

	// Non-existing file
	assert.Equal(t, "", utils.GetSecret("", filepath.Join(t.TempDir(), "missing")))
}

func TestParseSecretFile(t *testing.T) {
	assert.Equal(t, "mysecret", utils.ParseSecretFile("   mysecret   \n"))
	assert.Equal(t, "firstsecret", utils.ParseSecretFile("\n\n   firstsecret   \nsecondsecret\n"))
	assert.Equal(t, "", utils.ParseSecretFile("\n   \n  \n"))
	assert.Equal(t, "", utils.ParseSecretFile(""))
}

func TestGetRandomString(t *testing.T) {
	urlSafe := regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	for _, length := range []int{1, 16, 255, 256} {
		str, err := utils.GetRandomString(length)
		assert.NilError(t, err)
		assert.Equal(t, length, len(str))
		assert.Assert(t, urlSafe.MatchString(str))
	}

	a, err := utils.GetRandomString(256)
	assert.NilError(t, err)
	b, err := utils.GetRandomString(256)
	assert.NilError(t, err)
	assert.Assert(t, a != b)

	_, err = utils.GetRandomString(0)
	assert.Error(t, err, "length must be greater than 0")
}

func TestSecureCompare(t *testing.T) {
	assert.Assert(t, utils.SecureCompare("ssh-secret", "ssh-secret"))
	assert.Assert(t, !utils.SecureCompare("ssh-secret", "ssh-secreT"))
	assert.Assert(t, !utils.SecureCompare("ssh-secret", ""))
}

func TestGenerateUUID(t *testing.T) {
	// Same input yields the same id
	assert.Equal(t, utils.GenerateUUID("localhost"), utils.GenerateUUID("localhost"))
	assert.Assert(t, utils.GenerateUUID("localhost") != utils.GenerateUUID("example.com"))
}
