package cli

import (
	"bytes"
	"testing"
)

func BenchmarkVersionJSON(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		var out bytes.Buffer
		cmd := NewRootCommand(&out, BuildInfo{Version: "bench", Commit: "bench", BuildTime: "bench"})
		cmd.SetArgs([]string{"--json", "version"})
		if err := cmd.Execute(); err != nil {
			b.Fatalf("execute version command: %v", err)
		}
	}
}

func BenchmarkParseSetFlags(b *testing.B) {
	flags := []string{"payment_status=paid", "payment_amount=4500", "extras=null"}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := parseSetFlags(flags); err != nil {
			b.Fatalf("parse set flags: %v", err)
		}
	}
}
