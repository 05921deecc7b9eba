package packaging

import (
	"fmt"
	"path"
	"strings"
)

// NormalizeExtraFiles turns the accepted extra-files shapes into an ordered list
// of distinct relative paths. Files are retrieved by base name, so two paths
// sharing one are rejected. It accepts nil, a comma separated string, a []string
// or a []any holding strings; any other shape is a validation error.
func NormalizeExtraFiles(v any) ([]string, error) {
	var raw []string

	switch value := v.(type) {
	case nil:
		return nil, nil
	case string:
		raw = strings.Split(value, ",")
	case []string:
		raw = value
	case []any:
		raw = make([]string, 0, len(value))

		for _, item := range value {
			s, ok := item.(string)
			if !ok {
				return nil, &ValidationError{
					Field:  "package.extra_files",
					Reason: fmt.Sprintf("list item of type %T is not accepted", item),
				}
			}

			raw = append(raw, s)
		}
	default:
		return nil, &ValidationError{
			Field:  "package.extra_files",
			Reason: fmt.Sprintf("extra files of type %T is not accepted", v),
		}
	}

	return dedupeExtraFiles(raw)
}

func dedupeExtraFiles(raw []string) ([]string, error) {
	var (
		files = make([]string, 0, len(raw))
		seen  = make(map[string]struct{}, len(raw))
		bases = make(map[string]string, len(raw))
	)

	for _, item := range raw {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		cleaned := path.Clean(item)
		if path.IsAbs(cleaned) || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
			return nil, &ValidationError{
				Field:  "package.extra_files",
				Reason: fmt.Sprintf("%q must be relative to the remote workspace", item),
			}
		}

		if _, ok := seen[cleaned]; ok {
			continue
		}

		if other, ok := bases[path.Base(cleaned)]; ok {
			return nil, &ValidationError{
				Field:  "package.extra_files",
				Reason: fmt.Sprintf("%q and %q would be retrieved to the same local file", other, cleaned),
			}
		}

		seen[cleaned] = struct{}{}
		bases[path.Base(cleaned)] = cleaned
		files = append(files, cleaned)
	}

	if len(files) == 0 {
		return nil, nil
	}

	return files, nil
}
