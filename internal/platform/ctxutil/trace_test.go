package ctxutil

import (
	"context"
	"testing"
)

func TestTraceFields(t *testing.T) {
	cases := []struct {
		name string
		td   *TraceData
		want []interface{}
	}{
		{name: "none", td: nil, want: nil},
		{name: "both", td: &TraceData{TraceID: "t1", RequestID: "r1"}, want: []interface{}{"trace_id", "t1", "request_id", "r1"}},
		{name: "request_only", td: &TraceData{RequestID: "r2"}, want: []interface{}{"request_id", "r2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			if tc.td != nil {
				ctx = WithTraceData(ctx, tc.td)
			}
			got := TraceFields(ctx)
			if len(got) != len(tc.want) {
				t.Fatalf("TraceFields()=%v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("TraceFields()[%d]=%v, want %v", i, got[i], tc.want[i])
				}
			}
		})
	}
}
