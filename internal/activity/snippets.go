package activity

import "math/rand/v2"

var snippetsByExt = map[string][]string{
	".py": {
		"result = [x for x in data if x > 0]",
		"def process(items):\n    return sorted(items)",
		"logger.info('processing complete')",
		"assert result == expected",
	},
	".go": {
		"if err != nil {\n\treturn err\n}",
		"for _, item := range items {\n\ttotal += item\n}",
		"ctx, cancel := context.WithTimeout(ctx, 5*time.Second)\ndefer cancel()",
		"logger.Info(\"processing complete\")",
	},
	".tf": {
		"variable \"region\" {\n  type    = string\n  default = \"us-east-1\"\n}",
		"output \"instance_id\" {\n  value = aws_instance.web.id\n}",
	},
	".js": {
		"const result = items.filter((x) => x > 0);",
		"export function sum(a, b) {\n  return a + b;\n}",
	},
}

var fallbackSnippets = []string{
	"notes: review the latest changes",
	"next: update the summary table",
}

// SnippetBank picks short text to type, keyed by file extension.
type SnippetBank struct {
	rng *rand.Rand
}

// NewSnippetBank creates a bank drawing from rng.
func NewSnippetBank(rng *rand.Rand) *SnippetBank {
	return &SnippetBank{rng: rng}
}

// Snippet returns a snippet for ext, or a plain-text line for unknown types.
func (b *SnippetBank) Snippet(ext string) string {
	pool, ok := snippetsByExt[ext]
	if !ok {
		pool = fallbackSnippets
	}
	return pool[b.rng.IntN(len(pool))]
}

// Comment returns a single comment line in the syntax of ext.
func (b *SnippetBank) Comment(ext string) string {
	words := []string{"review this", "check edge cases", "revisit naming", "optimize later"}
	w := words[b.rng.IntN(len(words))]
	switch ext {
	case ".py", ".tf", ".yaml", ".yml":
		return "# " + w
	case ".go", ".js", ".ts", ".java", ".rs":
		return "// " + w
	default:
		return w
	}
}
