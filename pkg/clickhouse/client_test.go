package clickhouse

import (
	"strings"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	cases := []struct {
		name string
		cfg  ClientConfig
		want string
	}{
		{
			name: "native no params",
			cfg:  ClientConfig{Host: "ch", Port: 9000, Database: "followfeed", User: "default"},
			want: "clickhouse://default:@ch:9000/followfeed",
		},
		{
			name: "http with params",
			cfg: ClientConfig{
				Host: "ch", Port: 8123, Database: "db", User: "u", Password: "p", UseHTTP: true,
				DialTimeout: 5 * time.Second, MaxExecTime: 30 * time.Second, AsyncInsert: true, WaitForAsync: true,
			},
			want: "clickhouse+http://u:p@ch:8123/db?dial_timeout=5s&max_execution_time=30&async_insert=1&wait_for_async_insert=1",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := buildDSN(tc.cfg); got != tc.want {
				t.Fatalf("buildDSN = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(WithPort(9000)); err == nil {
		t.Fatalf("expected error without host")
	}
}

func TestSchemaQualifiesDatabase(t *testing.T) {
	stmts := Schema("ff")
	if len(stmts) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(stmts))
	}
	for _, s := range stmts[1:] {
		if !strings.Contains(s, "ff.") {
			t.Fatalf("statement not qualified: %s", s)
		}
	}
}
