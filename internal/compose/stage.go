package compose

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
)

// stageNode copies one plan node's descriptor source tree into
// stagingRoot/node.TargetSubpath, applying text interpolation to every
// file the descriptor flags as templated. Binary and non-templated
// files are copied verbatim.
func stageNode(node PlanNode, stagingRoot string) (int, error) {
	destRoot := filepath.Join(stagingRoot, filepath.FromSlash(node.TargetSubpath))
	vars, err := bindVariables(node)
	if err != nil {
		return 0, err
	}
	written := 0
	err = filepath.Walk(node.Descriptor.SourceDir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, relErr := filepath.Rel(node.Descriptor.SourceDir, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		dest := filepath.Join(destRoot, rel)
		if info.IsDir() {
			return os.MkdirAll(dest, 0o755)
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if node.Descriptor.IsTemplated(filepath.ToSlash(rel)) {
			if err := copyInterpolated(path, dest, vars); err != nil {
				return err
			}
		} else {
			if err := copyVerbatim(path, dest); err != nil {
				return err
			}
		}
		written++
		return nil
	})
	if err != nil {
		return written, &Error{Kind: KindFilesystemFault, Message: err.Error(), TemplateSlug: node.Descriptor.Address(), Cause: err}
	}
	return written, nil
}

// bindVariables merges the descriptor's declared variable defaults with
// the node's caller-supplied bindings — bindings win on conflict, mirroring
// the general rule that more specific configuration overrides defaults.
func bindVariables(node PlanNode) (map[string]any, error) {
	defaults := map[string]any{}
	for _, v := range node.Descriptor.Variables {
		if v.Default != nil {
			defaults[v.Name] = v.Default
		}
	}
	if err := mergo.Merge(&defaults, node.Variables, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merge variable defaults: %w", err)
	}
	if node.InstanceName != "" {
		defaults["instance_name"] = node.InstanceName
	}
	return defaults, nil
}

func copyVerbatim(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func copyInterpolated(src, dest string, vars map[string]any) error {
	raw, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	text := interpolate(string(raw), vars)
	return os.WriteFile(dest, []byte(text), info.Mode().Perm())
}

// interpolate substitutes every {{key}} placeholder with its string form
// from vars, leaving unknown placeholders untouched.
func interpolate(text string, vars map[string]any) string {
	for key, val := range vars {
		placeholder := "{{" + key + "}}"
		text = strings.ReplaceAll(text, placeholder, fmt.Sprintf("%v", val))
	}
	return text
}
