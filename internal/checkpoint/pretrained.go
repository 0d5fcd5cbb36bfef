package checkpoint

import (
	"fmt"

	"github.com/born-ml/gpt2/internal/gpt"
	"github.com/born-ml/gpt2/internal/tensor"
)

// LoadPretrained builds a model of a published GPT-2 size and fills it from
// a SafeTensors checkpoint. The naming convention is detected from the
// tensor names.
func LoadPretrained[B tensor.Backend](path, modelType string, backend B) (*gpt.Model[B], error) {
	cfg, err := gpt.ConfigFor(modelType)
	if err != nil {
		return nil, err
	}
	return LoadWithConfig(path, cfg, backend)
}

// LoadWithConfig builds an uninitialized model for cfg and imports path.
func LoadWithConfig[B tensor.Backend](path string, cfg gpt.Config, backend B) (*gpt.Model[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	model := gpt.NewUninitialized(cfg, backend)
	if _, err := LoadInto(model, path); err != nil {
		return nil, err
	}
	return model, nil
}

// LoadInto imports a SafeTensors checkpoint into an existing model and
// returns the detected convention.
func LoadInto[B tensor.Backend](model *gpt.Model[B], path string) (*Convention, error) {
	tensors, _, err := ReadSafeTensors(path)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	conv, err := Detect(names)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if err := Import(model.StateDict(), tensors, conv); err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	return conv, nil
}

// Save writes the model's parameters to path under the given source's
// naming convention.
func Save[B tensor.Backend](model *gpt.Model[B], path string, source Source) error {
	conv, err := Lookup(source)
	if err != nil {
		return err
	}
	tensors, err := Export(model.StateDict(), conv)
	if err != nil {
		return err
	}
	metadata := map[string]string{
		"format":  "pt",
		"source":  string(source),
		"n_layer": fmt.Sprint(model.Config.NumLayers),
		"n_head":  fmt.Sprint(model.Config.NumHeads),
		"n_embd":  fmt.Sprint(model.Config.EmbedDim),
	}
	return WriteSafeTensors(path, tensors, metadata)
}
