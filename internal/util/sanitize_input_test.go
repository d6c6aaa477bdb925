package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+55 (11) 99999-9999", "5511999999999"},
		{" 5511999999999 ", "5511999999999"},
		{"11 3333-4444", "1133334444"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePhone(tt.in))
	}
}

func TestValidPhone(t *testing.T) {
	assert.True(t, ValidPhone("5511999999999"))
	assert.False(t, ValidPhone("123"))
	assert.False(t, ValidPhone("55119999x9999"))
	assert.False(t, ValidPhone("1234567890123456"))
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;hi&lt;/b&gt;", SanitizeInput(" <b>hi</b> "))
}
