//go:build llama

package runtime

/*
#cgo LDFLAGS: -lllama
#include <llama.h>
#include <stdlib.h>
*/
import "C"
import (
	"errors"
	"fmt"
	"unsafe"
)

// llamaBuilt reports that this binary carries the in-process llama runtime.
const llamaBuilt = true

// llamaModel implements Model on top of llama.cpp. One model, one context,
// owned for the process lifetime.
type llamaModel struct {
	model *C.struct_llama_model
	ctx   *C.struct_llama_context
	vocab *C.struct_llama_vocab
	cfg   Config

	pieceBuf []byte
}

// Load initializes the llama backend, loads the weights and creates the
// single inference context.
func Load(cfg Config) (Model, error) {
	cfg = cfg.withDefaults()
	if cfg.ModelPath == "" {
		return nil, &LoadError{Path: cfg.ModelPath, Err: errors.New("model path is empty")}
	}

	C.llama_backend_init()

	cPath := C.CString(cfg.ModelPath)
	defer C.free(unsafe.Pointer(cPath))

	mparams := C.llama_model_default_params()
	model := C.llama_model_load_from_file(cPath, mparams)
	if model == nil {
		C.llama_backend_free()
		return nil, &LoadError{Path: cfg.ModelPath, Err: errors.New("llama_model_load_from_file returned nil")}
	}

	cparams := C.llama_context_default_params()
	cparams.n_ctx = C.uint32_t(cfg.ContextSize)
	cparams.n_batch = C.uint32_t(cfg.BatchSize)
	cparams.n_threads = C.int32_t(cfg.Threads)
	cparams.n_threads_batch = C.int32_t(cfg.Threads)

	ctx := C.llama_init_from_model(model, cparams)
	if ctx == nil {
		C.llama_model_free(model)
		C.llama_backend_free()
		return nil, &LoadError{Path: cfg.ModelPath, Err: errors.New("llama_init_from_model returned nil")}
	}

	return &llamaModel{
		model:    model,
		ctx:      ctx,
		vocab:    C.llama_model_get_vocab(model),
		cfg:      cfg,
		pieceBuf: make([]byte, 256),
	}, nil
}

func (m *llamaModel) Tokenize(text string, addSpecial, parseSpecial bool) ([]int, error) {
	cText := C.CString(text)
	defer C.free(unsafe.Pointer(cText))

	// Worst case one token per byte plus special markers.
	capTokens := len(text) + 16
	buf := make([]C.llama_token, capTokens)

	n := C.llama_tokenize(m.vocab,
		cText, C.int32_t(len(text)),
		&buf[0], C.int32_t(capTokens),
		C.bool(addSpecial), C.bool(parseSpecial))
	if n < 0 {
		return nil, fmt.Errorf("llama_tokenize reported %d", int(n))
	}

	out := make([]int, int(n))
	for i := range out {
		out[i] = int(buf[i])
	}
	return out, nil
}

func (m *llamaModel) Decode(b Batch) error {
	n := len(b.Tokens)
	if n == 0 {
		return errors.New("empty batch")
	}

	batch := C.llama_batch_init(C.int32_t(n), 0, 1)
	defer C.llama_batch_free(batch)
	batch.n_tokens = C.int32_t(n)

	tokens := unsafe.Slice(batch.token, n)
	pos := unsafe.Slice(batch.pos, n)
	nSeq := unsafe.Slice(batch.n_seq_id, n)
	seq := unsafe.Slice(batch.seq_id, n)
	logits := unsafe.Slice(batch.logits, n)

	for i := 0; i < n; i++ {
		tokens[i] = C.llama_token(b.Tokens[i])
		pos[i] = C.llama_pos(b.Positions[i])
		nSeq[i] = 1
		unsafe.Slice(seq[i], 1)[0] = 0
		if b.WantLogits[i] {
			logits[i] = 1
		} else {
			logits[i] = 0
		}
	}

	if status := C.llama_decode(m.ctx, batch); status != 0 {
		return &DecodeError{Status: int(status)}
	}
	return nil
}

func (m *llamaModel) Logits() []float32 {
	raw := C.llama_get_logits_ith(m.ctx, -1)
	if raw == nil {
		return nil
	}
	n := m.VocabSize()
	return unsafe.Slice((*float32)(unsafe.Pointer(raw)), n)
}

func (m *llamaModel) TokenPiece(id int) string {
	n := C.llama_token_to_piece(m.vocab, C.llama_token(id),
		(*C.char)(unsafe.Pointer(&m.pieceBuf[0])), C.int32_t(len(m.pieceBuf)), 0, C.bool(false))
	if n <= 0 {
		return ""
	}
	return string(m.pieceBuf[:int(n)])
}

func (m *llamaModel) EOSToken() int {
	return int(C.llama_vocab_eos(m.vocab))
}

func (m *llamaModel) VocabSize() int {
	return int(C.llama_vocab_n_tokens(m.vocab))
}

func (m *llamaModel) ContextSize() int {
	return m.cfg.ContextSize
}

func (m *llamaModel) ClearMemory() {
	C.llama_memory_clear(C.llama_get_memory(m.ctx), C.bool(false))
}

func (m *llamaModel) Close() error {
	if m.ctx != nil {
		C.llama_free(m.ctx)
		m.ctx = nil
	}
	if m.model != nil {
		C.llama_model_free(m.model)
		m.model = nil
	}
	C.llama_backend_free()
	return nil
}
