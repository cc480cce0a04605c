package model

// ImportPair records that a scanned file imports a base module.
// File is the base name of the file (no directory); Module is the first
// dotted segment of the imported name, e.g. "os" for "os.path".
type ImportPair struct {
	File   string `json:"file"`
	Module string `json:"module"`
}

// Files returns the distinct file labels in pairs, in first-seen order.
func Files(pairs []ImportPair) []string {
	seen := make(map[string]bool)
	var files []string
	for _, p := range pairs {
		if !seen[p.File] {
			seen[p.File] = true
			files = append(files, p.File)
		}
	}
	return files
}
