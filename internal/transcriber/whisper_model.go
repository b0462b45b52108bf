//go:build whispercpp

package transcriber

/*
#cgo CFLAGS: -I${SRCDIR}/../../third_party/whisper.cpp -I${SRCDIR}/../../third_party/whisper.cpp/include -I${SRCDIR}/../../third_party/whisper.cpp/ggml/include
#cgo CXXFLAGS: -std=c++17 -I${SRCDIR}/../../third_party/whisper.cpp -I${SRCDIR}/../../third_party/whisper.cpp/include -I${SRCDIR}/../../third_party/whisper.cpp/ggml/include
#cgo LDFLAGS: -L${SRCDIR}/../../third_party/whisper.cpp/build -L${SRCDIR}/../../third_party/whisper.cpp/build/src -Wl,-rpath,${SRCDIR}/../../third_party/whisper.cpp/build/src -lwhisper -lstdc++ -lm

#include "stdlib.h"
#include "include/whisper.h"
#include "ggml.h"

bool longscribeWhisperAbort(void * user_data);
*/
import "C"

import (
	"context"
	"fmt"
	"runtime/cgo"
	"strings"
	"sync"
	"unsafe"

	"go.uber.org/zap"
)

// NativeAvailable reports whether the whisper.cpp engine is compiled in.
func NativeAvailable() bool { return true }

// WhisperCppModel implements Model on top of the whisper.cpp C library
type WhisperCppModel struct {
	mu        sync.Mutex
	logger    *zap.Logger
	ctx       *C.struct_whisper_context
	modelPath string
	useGPU    bool
	deviceID  int
}

// NewWhisperCppModel creates an unloaded whisper.cpp model instance
func NewWhisperCppModel(logger *zap.Logger, useGPU bool, deviceID int) *WhisperCppModel {
	return &WhisperCppModel{
		logger:   logger,
		useGPU:   useGPU,
		deviceID: deviceID,
	}
}

// Load initializes the whisper context from a ggml model file
func (m *WhisperCppModel) Load(modelPath string) error {
	if modelPath == "" {
		return fmt.Errorf("model path cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx != nil {
		return fmt.Errorf("whisper model already loaded from %s", m.modelPath)
	}

	cPath := C.CString(modelPath)
	defer C.free(unsafe.Pointer(cPath))

	cParams := C.whisper_context_default_params()
	cParams.use_gpu = C.bool(m.useGPU)
	if m.useGPU && m.deviceID >= 0 {
		cParams.gpu_device = C.int(m.deviceID)
	}

	ctx := C.whisper_init_from_file_with_params(cPath, cParams)
	if ctx == nil {
		return fmt.Errorf("failed to initialize whisper context for %s", modelPath)
	}

	m.ctx = ctx
	m.modelPath = modelPath
	return nil
}

// Recognize runs whisper inference over the clip samples and returns its
// segments with clip-relative timestamps in seconds
func (m *WhisperCppModel) Recognize(ctx context.Context, samples []float32, opts Options) ([]Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx == nil {
		return nil, fmt.Errorf("whisper model not loaded")
	}

	state := C.whisper_init_state(m.ctx)
	if state == nil {
		return nil, fmt.Errorf("failed to initialize whisper state")
	}
	defer C.whisper_free_state(state)

	params := C.whisper_full_default_params(C.WHISPER_SAMPLING_GREEDY)
	params.print_progress = C.bool(false)
	params.print_realtime = C.bool(false)
	params.print_timestamps = C.bool(false)
	params.translate = C.bool(opts.Task == TaskTranslate)
	// Windows are recognized independently, so no cross-call context
	params.no_context = C.bool(true)
	params.single_segment = C.bool(false)

	lang := strings.TrimSpace(opts.Language)
	if lang == "" {
		lang = LanguageAuto
	}
	cLang := C.CString(lang)
	defer C.free(unsafe.Pointer(cLang))
	params.language = cLang
	if strings.EqualFold(lang, LanguageAuto) {
		params.detect_language = C.bool(true)
	}

	handle := cgo.NewHandle(ctx)
	defer handle.Delete()
	params.abort_callback = (C.ggml_abort_callback)(C.longscribeWhisperAbort)
	params.abort_callback_user_data = unsafe.Pointer(&handle)

	cSamples := (*C.float)(unsafe.Pointer(&samples[0]))
	if ret := C.whisper_full_with_state(m.ctx, state, params, cSamples, C.int(len(samples))); ret != 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("whisper inference failed with code %d", int(ret))
	}

	count := int(C.whisper_full_n_segments_from_state(state))
	segments := make([]Segment, 0, count)
	for i := 0; i < count; i++ {
		// t0/t1 are in 10 ms ticks
		t0 := int64(C.whisper_full_get_segment_t0_from_state(state, C.int(i)))
		t1 := int64(C.whisper_full_get_segment_t1_from_state(state, C.int(i)))
		text := C.GoString(C.whisper_full_get_segment_text_from_state(state, C.int(i)))
		segments = append(segments, Segment{
			Start: float64(t0) / 100.0,
			End:   float64(t1) / 100.0,
			Text:  text,
		})
	}

	m.logger.Debug("whisper inference completed",
		zap.Int("samples", len(samples)),
		zap.Int("segments", len(segments)),
		zap.String("language", lang))

	return segments, nil
}

// Close frees the whisper context
func (m *WhisperCppModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx != nil {
		C.whisper_free(m.ctx)
		m.ctx = nil
		m.modelPath = ""
	}
	return nil
}

// GPUStatus reports whether the model was configured for GPU inference
func (m *WhisperCppModel) GPUStatus() (bool, int) {
	return m.useGPU, m.deviceID
}

//export longscribeWhisperAbort
func longscribeWhisperAbort(userData unsafe.Pointer) C.bool {
	if shouldAbort(userData) {
		return C.bool(true)
	}
	return C.bool(false)
}
