package control

import (
	"strings"
	"sync"
	"testing"
)

func TestCountersConcurrent(t *testing.T) {
	mr := NewMetricsRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mr.Counter("conn.accepted")
			for j := 0; j < 1000; j++ {
				c.Inc()
			}
			mr.Add("http.requests", 2)
		}()
	}
	wg.Wait()
	snap := mr.GetSnapshot()
	if snap["conn.accepted"] != 16000 || snap["http.requests"] != 32 {
		t.Errorf("snapshot = %v", snap)
	}
}

func TestWriteReport(t *testing.T) {
	mr := NewMetricsRegistry()
	mr.Add("b.count", 3)
	mr.Add("a.count", 1)
	dp := NewDebugProbes()
	dp.RegisterProbe("workers.live", func() any { return 4 })
	if v, ok := dp.Probe("workers.live"); !ok || v != 4 {
		t.Errorf("probe = %v, %v", v, ok)
	}
	var sb strings.Builder
	if err := WriteReport(&sb, dp, mr); err != nil {
		t.Fatal(err)
	}
	want := "workers.live 4\na.count 1\nb.count 3\n"
	if sb.String() != want {
		t.Errorf("report:\n%s\nwant:\n%s", sb.String(), want)
	}
}
