package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBindFromEnvironment(t *testing.T) {
	t.Setenv(LanguageEnv, "de_DE.UTF-8")
	assert.Equal(t, "de", Bind())
	assert.Equal(t, "Mach eine Pause", T("Take a break"))
	assert.Equal(t, "untranslated", T("untranslated"))

	t.Setenv(LanguageEnv, "tlh")
	assert.Equal(t, "en", Bind())
	assert.Equal(t, "Take a break", T("Take a break"))
	assert.Equal(t, "en", Lang())
}
