package config

import (
	"errors"
	"fmt"
	"strings"

	"entmerge/internal/diag"
	"entmerge/internal/entropy"
	"entmerge/internal/pipeline"
	"entmerge/pkg/registry"
)

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	// 输入路径不得为空字符串；"-" 不能与其他输入混用
	dash := false
	for _, r := range cfg.Inputs {
		if strings.TrimSpace(r) == "" {
			return errors.New("config: input path cannot be empty")
		}
		if strings.TrimSpace(r) == "-" {
			dash = true
		}
	}
	if dash && len(cfg.Inputs) > 1 {
		return errors.New("config: '-' cannot be mixed with other inputs")
	}
	if cfg.Base < 2 {
		return errors.New("config: base must be >= 2")
	}
	if _, err := entropy.ParseBias(cfg.Bias); err != nil {
		return fmt.Errorf("config: bias: %w", err)
	}
	if cfg.Concurrency < 1 {
		return errors.New("config: concurrency must be >= 1")
	}
	if lv := strings.TrimSpace(cfg.Logging.Level); lv != "" && !diag.ValidLevel(lv) {
		return fmt.Errorf("config: logging.level %q invalid (debug|info|warn|error)", lv)
	}
	d := Defaults()
	if name := effName(cfg.Components.Reader, d.Components.Reader); registry.Reader[name] == nil {
		return fmt.Errorf("config: reader %q not registered", name)
	}
	if name := effName(cfg.Components.Splitter, d.Components.Splitter); registry.Splitter[name] == nil {
		return fmt.Errorf("config: splitter %q not registered", name)
	}
	if name := effName(cfg.Components.Formatter, d.Components.Formatter); registry.Formatter[name] == nil {
		return fmt.Errorf("config: formatter %q not registered", name)
	}
	if _, err := Registry(cfg); err != nil {
		return err
	}
	return nil
}

// Registry 按配置构造符号集注册表：内置（除非禁用）在前，自定义在后。
func Registry(cfg Config) (*registry.Registry, error) {
	var r *registry.Registry
	var err error
	if cfg.DisableBuiltins {
		r, err = registry.New()
	} else {
		r, err = registry.New(registry.Builtin()...)
	}
	if err != nil {
		return nil, fmt.Errorf("config: symbol_sets: %w", err)
	}
	for _, s := range cfg.SymbolSets {
		if err := r.Register(s); err != nil {
			return nil, fmt.Errorf("config: symbol_sets: %w", err)
		}
	}
	if r.Len() == 0 {
		return nil, errors.New("config: no symbol sets (disable_builtins without symbol_sets)")
	}
	return r, nil
}

// Assemble 构造 Components 与 Settings。
// 严格 Options 解析在 registry（工厂）层进行；此处只传 raw JSON。
// Settings.Out/Report 由调用方填写。
func Assemble(cfg Config) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	d := Defaults()
	rn := effName(cfg.Components.Reader, d.Components.Reader)
	sn := effName(cfg.Components.Splitter, d.Components.Splitter)
	fn := effName(cfg.Components.Formatter, d.Components.Formatter)

	r, err := registry.Reader[rn](cfg.Options.Reader)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("config: options.reader: %w", err)
	}
	s, err := registry.Splitter[sn](cfg.Options.Splitter)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("config: options.splitter: %w", err)
	}
	f, err := registry.Formatter[fn](cfg.Options.Formatter)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("config: options.formatter: %w", err)
	}
	reg, err := Registry(cfg)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	bias, err := entropy.ParseBias(cfg.Bias)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("config: bias: %w", err)
	}

	comp := pipeline.Components{Reader: r, Splitter: s, Formatter: f}
	set := pipeline.Settings{
		Inputs:      cloneStrings(cfg.Inputs),
		Base:        cfg.Base,
		Length:      LengthOf(cfg),
		Bias:        bias,
		Sets:        reg.Sets(),
		Concurrency: cfg.Concurrency,
	}
	return comp, set, nil
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}
