package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	t.Run("desktop browser", func(t *testing.T) {
		info := Describe("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		assert.Contains(t, info.Label, "Chrome on Windows")
		assert.False(t, info.Mobile)
		assert.False(t, info.Automated)
	})

	t.Run("crawler is flagged", func(t *testing.T) {
		info := Describe("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
		assert.True(t, info.Automated)
	})

	t.Run("empty agent", func(t *testing.T) {
		assert.Equal(t, "Unknown Device", Label(""))
		assert.Equal(t, "Unknown Device", Label("   "))
	})
}
