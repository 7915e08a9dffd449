package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/synheart/synheart-stress/internal/models"
)

// WasmExport is the function a scorer plugin must export:
// score(hr, eda, hrv, rr f64) -> f64. Unavailable inputs are passed as NaN.
const WasmExport = "score"

// WasmScorer delegates scoring to a WebAssembly module.
type WasmScorer struct {
	mu      sync.Mutex
	runtime wazero.Runtime
	module  api.Module
	fn      api.Function
}

// LoadWasmScorer reads and instantiates a scorer plugin from disk.
func LoadWasmScorer(ctx context.Context, path string) (*WasmScorer, error) {
	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read wasm file: %w", err)
	}
	return NewWasmScorer(ctx, wasmBytes)
}

// NewWasmScorer compiles wasmBytes and checks the score export signature.
func NewWasmScorer(ctx context.Context, wasmBytes []byte) (*WasmScorer, error) {
	r := wazero.NewRuntime(ctx)

	// Plugins built by standard toolchains often import WASI.
	wasi_snapshot_preview1.MustInstantiate(ctx, r)

	compiled, err := r.CompileModule(ctx, wasmBytes)
	if err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("failed to compile wasm module: %w", err)
	}

	mod, err := r.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithStderr(os.Stderr))
	if err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate wasm module: %w", err)
	}

	fn := mod.ExportedFunction(WasmExport)
	if fn == nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("%s not exported", WasmExport)
	}
	if err := checkSignature(fn.Definition()); err != nil {
		_ = r.Close(ctx)
		return nil, err
	}

	return &WasmScorer{runtime: r, module: mod, fn: fn}, nil
}

func checkSignature(def api.FunctionDefinition) error {
	params := def.ParamTypes()
	results := def.ResultTypes()
	if len(params) != 4 || len(results) != 1 || results[0] != api.ValueTypeF64 {
		return fmt.Errorf("%s must have signature (f64, f64, f64, f64) -> f64", WasmExport)
	}
	for _, p := range params {
		if p != api.ValueTypeF64 {
			return fmt.Errorf("%s must have signature (f64, f64, f64, f64) -> f64", WasmExport)
		}
	}
	return nil
}

func (s *WasmScorer) Name() string { return ModeWasm }

// Compute calls the plugin. Guest failures and NaN results are reported as an
// unavailable score rather than an error.
func (s *WasmScorer) Compute(sig Signals) models.StressResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	results, err := s.fn.Call(context.Background(),
		api.EncodeF64(sig.HeartRate.Or(math.NaN())),
		api.EncodeF64(sig.EDA.Or(math.NaN())),
		api.EncodeF64(sig.HRV.Or(math.NaN())),
		api.EncodeF64(sig.RespiratoryRate.Or(math.NaN())),
	)
	if err != nil {
		slog.Warn("scoring: wasm call failed", "err", err)
		return unavailableResult(ModeWasm)
	}

	raw := models.Available(api.DecodeF64(results[0]))
	v, ok := raw.Get()
	if !ok {
		return unavailableResult(ModeWasm)
	}
	v = clamp01(v)
	pct := Percentage(v)
	return models.StressResult{
		Scorer:     ModeWasm,
		RawScore:   models.Available(v),
		Percentage: pct,
		Level:      LevelForPercentage(pct),
	}
}

// Close releases the wazero runtime.
func (s *WasmScorer) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runtime.Close(ctx)
}
