package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestSplit(t *testing.T) {
	cases := []struct {
		name         string
		cb           *tele.Callback
		unique, data string
	}{
		{"nil", nil, "", ""},
		{"resolved", &tele.Callback{Unique: "fmt", Data: "1.a.f.0"}, "fmt", "1.a.f.0"},
		{"raw", &tele.Callback{Data: "\ffmt|1.a.f.0"}, "fmt", "1.a.f.0"},
		{"raw without payload", &tele.Callback{Data: "\ffmt"}, "fmt", ""},
		{"foreign", &tele.Callback{Data: "plain"}, "plain", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u, d := Split(tc.cb)
			assert.Equal(t, tc.unique, u)
			assert.Equal(t, tc.data, d)
		})
	}
}
