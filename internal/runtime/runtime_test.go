package runtime

import "testing"

func TestPrefillBatchMarksLastPositionOnly(t *testing.T) {
	t.Parallel()

	b := PrefillBatch([]int{5, 9, 12})
	if len(b.Tokens) != 3 || len(b.Positions) != 3 || len(b.WantLogits) != 3 {
		t.Fatalf("unexpected batch shape: %+v", b)
	}
	for i, p := range b.Positions {
		if p != i {
			t.Fatalf("position %d = %d, want %d", i, p, i)
		}
	}
	for i, want := range []bool{false, false, true} {
		if b.WantLogits[i] != want {
			t.Fatalf("WantLogits[%d] = %v, want %v", i, b.WantLogits[i], want)
		}
	}
}

func TestPrefillBatchEmpty(t *testing.T) {
	t.Parallel()

	b := PrefillBatch(nil)
	if len(b.Tokens) != 0 || len(b.WantLogits) != 0 {
		t.Fatalf("expected empty batch, got %+v", b)
	}
}

func TestStepBatch(t *testing.T) {
	t.Parallel()

	b := StepBatch(77, 12)
	if len(b.Tokens) != 1 || b.Tokens[0] != 77 {
		t.Fatalf("unexpected tokens: %v", b.Tokens)
	}
	if b.Positions[0] != 12 {
		t.Fatalf("position = %d, want 12", b.Positions[0])
	}
	if !b.WantLogits[0] {
		t.Fatal("single-token step must request logits")
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{ModelPath: "m.gguf"}.withDefaults()
	if cfg.ContextSize != DefaultContextSize {
		t.Errorf("ContextSize = %d, want %d", cfg.ContextSize, DefaultContextSize)
	}
	if cfg.Threads != DefaultThreads {
		t.Errorf("Threads = %d, want %d", cfg.Threads, DefaultThreads)
	}
	if cfg.BatchSize != DefaultBatchSize {
		t.Errorf("BatchSize = %d, want %d", cfg.BatchSize, DefaultBatchSize)
	}

	cfg = Config{ContextSize: 4096, Threads: 8, BatchSize: 64}.withDefaults()
	if cfg.ContextSize != 4096 || cfg.Threads != 8 || cfg.BatchSize != 64 {
		t.Errorf("explicit values overridden: %+v", cfg)
	}
}
