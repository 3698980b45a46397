package conn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		want string
	}{
		{
			name: "defaults",
			opt:  Option{},
			want: "postgres://localhost:5432?sslmode=disable",
		},
		{
			name: "full",
			opt: Option{
				Host:     "db",
				Port:     6543,
				User:     "exec",
				Password: "p@ss",
				Database: "journal",
				SSLMode:  "require",
				Params:   map[string]string{"application_name": "execgate", "": "ignored"},
			},
			want: "postgres://exec:p%40ss@db:6543/journal?application_name=execgate&sslmode=require",
		},
		{
			name: "user without password",
			opt:  Option{User: "exec", Database: "journal"},
			want: "postgres://exec@localhost:5432/journal?sslmode=disable",
		},
		{
			name: "conn string wins",
			opt:  Option{ConnString: "host=x user=y", Host: "db"},
			want: "host=x user=y",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.opt.DSN())
		})
	}
}
