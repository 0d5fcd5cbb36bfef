// Package checkpoint moves GPT-2 parameters between a model's StateDict and
// foreign checkpoints.
//
// A foreign checkpoint is a flat map from name to tensor written by another
// implementation of the same architecture. How its names relate to ours,
// which entries are buffers, and which weights are stored transposed is
// described by a Convention, looked up by Source.
//
// Import is all-or-nothing: every name, count and shape is checked before
// the first value is copied, so a failed import leaves the model untouched.
//
// Supported sources:
//   - SourceHFStateDict: GPT2LMHeadModel.state_dict() names ("transformer.h.0.attn.c_attn.weight", "lm_head.weight")
//   - SourceHFModel: save_pretrained output ("transformer.h.0.attn.c_attn.weight", no lm_head)
//   - SourceHFHub: the published model.safetensors files ("h.0.attn.c_attn.weight", no lm_head)
//
// Example:
//
//	model, err := checkpoint.LoadPretrained("gpt2/model.safetensors", gpt.GPT2, cpu.New())
//	if err != nil {
//	    return err
//	}
package checkpoint
