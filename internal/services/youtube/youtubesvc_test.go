package youtube

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanTag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"#Ocean", "ocean"},
		{"  Facts  ", "facts"},
		{"Canción", "cancion"},
		{"#", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanTag(tt.in))
	}
}

func TestProcessTags(t *testing.T) {
	tags := processTags([]string{"#Ocean", "#ocean", "facts", "", "#a-tag-way-too-long-to-survive-the-limit"})
	assert.Equal(t, []string{"ocean", "facts"}, tags)
}

func TestProcessTagsCapsCount(t *testing.T) {
	var many []string
	for i := 0; i < 40; i++ {
		many = append(many, string(rune('a'+i%26))+string(rune('a'+i/26)))
	}
	assert.LessOrEqual(t, len(processTags(many)), 30)
}

func TestNewService(t *testing.T) {
	_, err := NewService("")
	assert.Error(t, err)

	svc, err := NewService("client_secret.json")
	assert.NoError(t, err)
	assert.NotNil(t, svc)
}
