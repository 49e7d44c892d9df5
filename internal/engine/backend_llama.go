// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build llamacpp && cgo

package engine

/*
#cgo LDFLAGS: -lllama -lm -lstdc++
#include <stdlib.h>
#include <stdbool.h>
#include <llama.h>

static void jeeves_batch_add(struct llama_batch *b, llama_token id, llama_pos pos, bool logits) {
	b->token[b->n_tokens] = id;
	b->pos[b->n_tokens] = pos;
	b->n_seq_id[b->n_tokens] = 1;
	b->seq_id[b->n_tokens][0] = 0;
	b->logits[b->n_tokens] = logits;
	b->n_tokens++;
}

static void jeeves_batch_logits_last(struct llama_batch *b) {
	if (b->n_tokens > 0) {
		b->logits[b->n_tokens - 1] = true;
	}
}

static struct llama_model *jeeves_load(const char *path) {
	struct llama_model_params p = llama_model_default_params();
	p.n_gpu_layers = 0;
	return llama_load_model_from_file(path, p);
}

static struct llama_context *jeeves_new_context(struct llama_model *m, uint32_t n_ctx, int32_t threads) {
	struct llama_context_params p = llama_context_default_params();
	p.n_ctx = n_ctx;
	p.n_threads = threads;
	p.n_threads_batch = threads;
	return llama_new_context_with_model(m, p);
}

static struct llama_sampler *jeeves_sampler(float temp, float top_p) {
	struct llama_sampler *s = llama_sampler_chain_init(llama_sampler_chain_default_params());
	llama_sampler_chain_add(s, llama_sampler_init_temp(temp));
	llama_sampler_chain_add(s, llama_sampler_init_top_p(top_p, 1));
	llama_sampler_chain_add(s, llama_sampler_init_dist(42));
	return s;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"
)

// CPU only: no layers are offloaded to a GPU.
type llamaBackend struct{}

func nativeBackend() Backend {
	return llamaBackend{}
}

func (llamaBackend) Name() string { return "llama.cpp" }

func (llamaBackend) Init() error {
	C.llama_backend_init()
	return nil
}

func (llamaBackend) Free() {
	C.llama_backend_free()
}

func (llamaBackend) Load(path string, p LoadParams) (Model, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	model := C.jeeves_load(cpath)
	if model == nil {
		return nil, errors.New("llama_load_model_from_file returned NULL")
	}
	ctx := C.jeeves_new_context(model, C.uint32_t(p.ContextSize), C.int32_t(p.Threads))
	if ctx == nil {
		C.llama_free_model(model)
		return nil, errors.New("llama_new_context_with_model returned NULL")
	}
	return &llamaModel{
		model: model,
		ctx:   ctx,
		mem:   int64(C.llama_state_get_size(ctx)),
	}, nil
}

type llamaModel struct {
	model *C.struct_llama_model
	ctx   *C.struct_llama_context
	mem   int64
}

func (m *llamaModel) MemoryBytes() int64 { return m.mem }

func (m *llamaModel) Close() error {
	if m.ctx != nil {
		C.llama_free(m.ctx)
		m.ctx = nil
	}
	if m.model != nil {
		C.llama_free_model(m.model)
		m.model = nil
	}
	return nil
}

func (m *llamaModel) Generate(prompt string, p GenerateParams, onPiece func(string)) (int, error) {
	if m.ctx == nil {
		return 0, errors.New("model closed")
	}

	cprompt := C.CString(prompt)
	defer C.free(unsafe.Pointer(cprompt))

	nctx := int(C.llama_n_ctx(m.ctx))
	tokens := make([]C.llama_token, nctx)
	n := int(C.llama_tokenize(m.model, cprompt, C.int32_t(len(prompt)),
		&tokens[0], C.int32_t(nctx), C.bool(true), C.bool(false)))
	if n < 0 {
		return 0, fmt.Errorf("prompt needs %d tokens, context holds %d", -n, nctx)
	}
	if n == 0 {
		return 0, errors.New("prompt tokenized to nothing")
	}
	tokens = tokens[:n]

	C.llama_kv_cache_clear(m.ctx)

	batch := C.llama_batch_init(C.int32_t(n), 0, 1)
	for i, tok := range tokens {
		C.jeeves_batch_add(&batch, tok, C.llama_pos(i), C.bool(false))
	}
	C.jeeves_batch_logits_last(&batch)
	rc := C.llama_decode(m.ctx, batch)
	C.llama_batch_free(batch)
	if rc != 0 {
		return 0, fmt.Errorf("prompt decode failed: %d", int(rc))
	}

	sampler := C.jeeves_sampler(C.float(p.Temperature), C.float(p.TopP))
	defer C.llama_sampler_free(sampler)

	buf := make([]byte, 256)
	generated := 0
	pos := n
	for i := 0; i < p.MaxTokens; i++ {
		tok := C.llama_sampler_sample(sampler, m.ctx, -1)
		if bool(C.llama_token_is_eog(m.model, tok)) {
			break
		}
		k := int(C.llama_token_to_piece(m.model, tok,
			(*C.char)(unsafe.Pointer(&buf[0])), C.int32_t(len(buf)), 0, C.bool(true)))
		if k > 0 {
			onPiece(string(buf[:k]))
		}
		generated++

		next := C.llama_batch_init(1, 0, 1)
		C.jeeves_batch_add(&next, tok, C.llama_pos(pos), C.bool(true))
		rc := C.llama_decode(m.ctx, next)
		C.llama_batch_free(next)
		if rc != 0 {
			break
		}
		pos++
	}
	return generated, nil
}
