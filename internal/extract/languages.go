package extract

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// languageSpec is the per-language node-type table a TreeSitterExtractor
// uses to classify declarations without hardcoding grammar details inline.
type languageSpec struct {
	name           string
	extensions     []string
	functionTypes  []string
	methodTypes    []string
	classTypes     []string
	interfaceTypes []string
	typeDefTypes   []string
	constantTypes  []string
	variableTypes  []string
	importTypes    []string
}

// languageRegistry maps extensions/names to tree-sitter grammars and their
// node-type tables, covering the four supported languages (Go, JS, TS,
// Python).
type languageRegistry struct {
	mu        sync.RWMutex
	specs     map[string]*languageSpec
	extToName map[string]string
	grammars  map[string]*sitter.Language
}

func newLanguageRegistry() *languageRegistry {
	r := &languageRegistry{
		specs:     make(map[string]*languageSpec),
		extToName: make(map[string]string),
		grammars:  make(map[string]*sitter.Language),
	}
	r.registerGo()
	r.registerTypeScript()
	r.registerJavaScript()
	r.registerPython()
	return r
}

func (r *languageRegistry) register(spec *languageSpec, grammar *sitter.Language) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.name] = spec
	r.grammars[spec.name] = grammar
	for _, ext := range spec.extensions {
		r.extToName[ext] = spec.name
	}
}

func (r *languageRegistry) byName(name string) (*languageSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specs[name]
	return s, ok
}

func (r *languageRegistry) grammarFor(name string) (*sitter.Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.grammars[name]
	return g, ok
}

func (r *languageRegistry) languageForExtension(ext string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	name, ok := r.extToName[ext]
	return name, ok
}

func (r *languageRegistry) registerGo() {
	r.register(&languageSpec{
		name:          "go",
		extensions:    []string{".go"},
		functionTypes: []string{"function_declaration"},
		methodTypes:   []string{"method_declaration"},
		typeDefTypes:  []string{"type_declaration"},
		constantTypes: []string{"const_declaration"},
		variableTypes: []string{"var_declaration"},
		importTypes:   []string{"import_declaration"},
	}, golang.GetLanguage())
}

func (r *languageRegistry) registerTypeScript() {
	ts := &languageSpec{
		name:           "typescript",
		extensions:     []string{".ts"},
		functionTypes:  []string{"function_declaration"},
		methodTypes:    []string{"method_definition"},
		classTypes:     []string{"class_declaration"},
		interfaceTypes: []string{"interface_declaration"},
		typeDefTypes:   []string{"type_alias_declaration"},
		constantTypes:  []string{"lexical_declaration"},
		variableTypes:  []string{"variable_declaration"},
		importTypes:    []string{"import_statement"},
	}
	r.register(ts, typescript.GetLanguage())

	tsxSpec := &languageSpec{
		name: "tsx", extensions: []string{".tsx"},
		functionTypes: ts.functionTypes, methodTypes: ts.methodTypes,
		classTypes: ts.classTypes, interfaceTypes: ts.interfaceTypes,
		typeDefTypes: ts.typeDefTypes, constantTypes: ts.constantTypes,
		variableTypes: ts.variableTypes, importTypes: ts.importTypes,
	}
	r.register(tsxSpec, tsx.GetLanguage())
}

func (r *languageRegistry) registerJavaScript() {
	js := &languageSpec{
		name:          "javascript",
		extensions:    []string{".js", ".mjs"},
		functionTypes: []string{"function_declaration", "function"},
		methodTypes:   []string{"method_definition"},
		classTypes:    []string{"class_declaration"},
		constantTypes: []string{"lexical_declaration"},
		variableTypes: []string{"variable_declaration"},
		importTypes:   []string{"import_statement"},
	}
	r.register(js, javascript.GetLanguage())

	jsx := &languageSpec{
		name: "jsx", extensions: []string{".jsx"},
		functionTypes: js.functionTypes, methodTypes: js.methodTypes,
		classTypes: js.classTypes, constantTypes: js.constantTypes,
		variableTypes: js.variableTypes, importTypes: js.importTypes,
	}
	r.register(jsx, javascript.GetLanguage())
}

func (r *languageRegistry) registerPython() {
	r.register(&languageSpec{
		name:          "python",
		extensions:    []string{".py"},
		functionTypes: []string{"function_definition"},
		classTypes:    []string{"class_definition"},
		variableTypes: []string{"assignment"},
		importTypes:   []string{"import_statement", "import_from_statement"},
	}, python.GetLanguage())
}

var defaultRegistry = newLanguageRegistry()
