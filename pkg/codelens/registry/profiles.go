package registry

import "regexp"

func res(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

var (
	cBlock    = []BlockComment{{Open: "/*", Close: "*/"}}
	slashes   = []string{"//"}
	hash      = []string{"#"}
	dashes    = []string{"--"}
	cLoops    = []string{"for", "while", "do"}
	cBranches = []string{"if", "switch"}
)

// profiles is the registry table. Identifiers follow linguist spelling so
// that classifier output maps onto them directly.
var profiles = []Profile{
	{
		ID:           "Python",
		Extensions:   []string{".py", ".pyw", ".pyi"},
		LineComments: hash,
		StringFences: []string{`"""`, `'''`},
		Quotes:       `"'`,
		Imports: res(
			`^\s*import\s+[A-Za-z_]`,
			`^\s*from\s+[\w.]+\s+import\s`,
		),
		Functions: res(`^\s*(?:async\s+)?def\s+(?P<name>[A-Za-z_]\w*)\s*\(`),
		Classes:   res(`^\s*(?P<kind>class)\s+(?P<name>[A-Za-z_]\w*)`),
		Variables: res(`^\s*[A-Za-z_][\w.]*(?:\s*,\s*[A-Za-z_]\w*)*\s*(?::\s*[^=()]+)?=(?:[^=]|$)`),
		Loops:        []string{"for", "while"},
		Conditionals: []string{"if", "elif"},
		Signatures: res(
			`^\s*(?:async\s+)?def\s+\w+\s*\(.*\)\s*(?:->\s*[^:]+)?:\s*$`,
			`^\s*class\s+\w+(?:\(.*\))?\s*:\s*$`,
			`^\s*from\s+[\w.]+\s+import\s`,
			`\bself\.\w`,
			`^\s*elif\b`,
			`__\w+__`,
		),
		IndentBlocks: true,
	},
	{
		ID:            "JavaScript",
		Extensions:    []string{".js", ".mjs", ".cjs", ".jsx"},
		LineComments:  slashes,
		BlockComments: cBlock,
		StringFences:  []string{"`"},
		Quotes:        `"'`,
		Imports: res(
			`^\s*import\s`,
			`\brequire\s*\(`,
			`^\s*export\s+.*\bfrom\s`,
		),
		Functions: res(
			`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(?P<name>[A-Za-z_$][\w$]*)\s*\(`,
			`^\s*(?:export\s+)?(?:const|let|var)\s+(?P<name>[A-Za-z_$][\w$]*)\s*=\s*(?:async\s+)?(?:function\b|\([^)]*\)\s*=>|[A-Za-z_$][\w$]*\s*=>)`,
			`^\s*(?:async\s+)?(?:static\s+)?(?:get\s+|set\s+)?(?P<name>[A-Za-z_$][\w$]*)\s*\([^)]*\)\s*\{\s*$`,
		),
		Classes:      res(`^\s*(?:export\s+)?(?:default\s+)?(?P<kind>class)\s+(?P<name>[A-Za-z_$][\w$]*)`),
		Variables:    res(`^\s*(?:export\s+)?(?:const|let|var)\s+[A-Za-z_$\[{]`),
		Loops:        cLoops,
		Conditionals: cBranches,
		Signatures: res(
			`\bconsole\.\w+\(`,
			`\bfunction\s*\w*\s*\(`,
			`\bmodule\.exports\b`,
			`\brequire\s*\(\s*['"]`,
			`\bdocument\.\w`,
			`===|!==`,
		),
	},
	{
		ID:            "TypeScript",
		Extensions:    []string{".ts", ".tsx", ".mts", ".cts"},
		LineComments:  slashes,
		BlockComments: cBlock,
		StringFences:  []string{"`"},
		Quotes:        `"'`,
		Imports: res(
			`^\s*import\s`,
			`\brequire\s*\(`,
			`^\s*export\s+.*\bfrom\s`,
		),
		Functions: res(
			`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(?P<name>[A-Za-z_$][\w$]*)\s*(?:<[^>]*>)?\s*\(`,
			`^\s*(?:export\s+)?(?:const|let|var)\s+(?P<name>[A-Za-z_$][\w$]*)\s*(?::\s*[^=]+)?=\s*(?:async\s+)?(?:function\b|\([^)]*\)\s*(?::\s*[^=]+)?=>|[A-Za-z_$][\w$]*\s*=>)`,
			`^\s*(?:(?:public|private|protected|static|async|readonly|abstract|override)\s+)*(?P<name>[A-Za-z_$][\w$]*)\s*(?:<[^>]*>)?\s*\([^)]*\)\s*(?::\s*[^{;]+)?\{\s*$`,
		),
		Classes: res(
			`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?(?P<kind>class|interface|enum)\s+(?P<name>[A-Za-z_$][\w$]*)`,
			`^\s*(?:export\s+)?(?P<kind>type)\s+(?P<name>[A-Za-z_$][\w$]*)\s*(?:<[^>]*>)?\s*=`,
		),
		Variables:    res(`^\s*(?:export\s+)?(?:const|let|var)\s+[A-Za-z_$\[{]`),
		Loops:        cLoops,
		Conditionals: cBranches,
		Signatures: res(
			`:\s*(?:string|number|boolean|any|void|unknown|never)\b`,
			`^\s*(?:export\s+)?interface\s+\w+`,
			`^\s*(?:export\s+)?type\s+\w+\s*(?:<[^>]*>)?\s*=`,
			`\bas\s+(?:string|number|const|unknown)\b`,
			`\b(?:private|public|readonly)\s+\w+\s*:`,
		),
	},
	{
		ID:            "Java",
		Extensions:    []string{".java"},
		LineComments:  slashes,
		BlockComments: cBlock,
		StringFences:  []string{`"""`},
		Quotes:        `"'`,
		Imports:       res(`^\s*import\s+(?:static\s+)?[\w.]+(?:\.\*)?\s*;`),
		Functions: res(
			`^\s*(?:(?:public|private|protected|static|final|abstract|synchronized|native|default)\s+)*(?:<[^>]+>\s+)?[\w.$]+(?:<[^()]*>)?(?:\[\])*\s+(?P<name>[A-Za-z_$][\w$]*)\s*\([^;]*$`,
		),
		Classes: res(
			`^\s*(?:(?:public|private|protected|static|final|abstract|sealed|non-sealed)\s+)*(?P<kind>class|interface|enum|record)\s+(?P<name>[A-Za-z_$][\w$]*)`,
		),
		Variables: res(
			`^\s*(?:(?:public|private|protected|static|final|transient|volatile)\s+)*[A-Za-z_$][\w.$]*(?:<[^()]*>)?(?:\[\])*\s+[A-Za-z_$][\w$]*\s*(?:=(?:[^=]|$)|;)`,
		),
		Loops:        cLoops,
		Conditionals: cBranches,
		Signatures: res(
			`\bSystem\.(?:out|err)\.print`,
			`^\s*public\s+(?:(?:static|final|abstract)\s+)*(?:class|interface|enum|record)\s`,
			`^\s*package\s+[\w.]+\s*;`,
			`@Override\b`,
			`\bpublic\s+static\s+void\s+main\s*\(`,
			`^\s*import\s+java\.`,
		),
	},
	{
		ID:            "C",
		Extensions:    []string{".c", ".h"},
		LineComments:  slashes,
		BlockComments: cBlock,
		Quotes:        `"'`,
		Imports:       res(`^\s*#\s*include\s*[<"]`),
		Functions: res(
			`^\s*(?:(?:static|inline|extern|const|unsigned|signed|struct|enum|volatile|register)\s+)*[A-Za-z_]\w*(?:\s*\*+\s*|\s+)(?P<name>[A-Za-z_]\w*)\s*\([^;]*$`,
		),
		Classes: res(`^\s*(?:typedef\s+)?(?P<kind>struct|union|enum)\s+(?P<name>[A-Za-z_]\w*)\s*\{?\s*$`),
		Variables: res(
			`^\s*(?:(?:static|const|extern|unsigned|signed|volatile|register|struct|long|short)\s+)*[A-Za-z_]\w*(?:\s*\*+\s*|\s+)[A-Za-z_]\w*(?:\s*\[[^\]]*\])?\s*(?:=(?:[^=]|$)|;|,)`,
		),
		Loops:        cLoops,
		Conditionals: cBranches,
		Signatures: res(
			`^\s*#\s*include\s*<\w+\.h>`,
			`\bprintf\s*\(`,
			`\bmalloc\s*\(`,
			`\bint\s+main\s*\(`,
			`\bsizeof\s*\(`,
			`^\s*#\s*define\s`,
		),
	},
	{
		ID:            "C++",
		Extensions:    []string{".cpp", ".cc", ".cxx", ".c++", ".hpp", ".hh", ".hxx"},
		LineComments:  slashes,
		BlockComments: cBlock,
		Quotes:        `"'`,
		Imports: res(
			`^\s*#\s*include\s*[<"]`,
			`^\s*using\s+namespace\s`,
			`^\s*import\s+[\w.<"]`,
		),
		Functions: res(
			`^\s*(?:template\s*<[^>]*>\s*)?(?:(?:static|inline|virtual|explicit|constexpr|extern|const|unsigned|signed|friend)\s+)*[A-Za-z_][\w:<>,]*(?:\s*[\*&]+\s*|\s+)(?P<name>[A-Za-z_~][\w:~]*)\s*\([^;]*$`,
		),
		Classes: res(
			`^\s*(?:template\s*<[^>]*>\s*)?(?P<kind>class|struct|union|enum(?:\s+class)?)\s+(?P<name>[A-Za-z_]\w*)(?:\s*(?:final\s*)?[:{].*)?$`,
		),
		Variables: res(
			`^\s*(?:(?:static|const|constexpr|extern|unsigned|signed|volatile|mutable|long|short)\s+)*(?:auto|[A-Za-z_][\w:]*(?:<[^;()]*>)?)(?:\s*[\*&]+\s*|\s+)[A-Za-z_]\w*(?:\s*\[[^\]]*\])?\s*(?:=(?:[^=]|$)|;|\{|,)`,
		),
		Loops:        cLoops,
		Conditionals: cBranches,
		Signatures: res(
			`\bstd::`,
			`\bcout\s*<<`,
			`^\s*#\s*include\s*<(?:iostream|vector|string|map|memory|algorithm)>`,
			`\btemplate\s*<`,
			`\bnullptr\b`,
			`^\s*(?:public|private|protected)\s*:\s*$`,
		),
	},
	{
		ID:            "C#",
		Extensions:    []string{".cs"},
		LineComments:  slashes,
		BlockComments: cBlock,
		Quotes:        `"'`,
		Imports:       res(`^\s*using\s+(?:static\s+)?[\w.]+\s*;`),
		Functions: res(
			`^\s*(?:(?:public|private|protected|internal|static|virtual|override|abstract|async|sealed|extern|unsafe|new|partial)\s+)*[\w.]+(?:<[^()]*>)?(?:\[\])*\??\s+(?P<name>[A-Za-z_]\w*)\s*(?:<[^>]*>)?\s*\([^;]*$`,
		),
		Classes: res(
			`^\s*(?:(?:public|private|protected|internal|static|abstract|sealed|partial|readonly)\s+)*(?P<kind>class|interface|struct|enum|record)\s+(?P<name>[A-Za-z_]\w*)`,
		),
		Variables: res(
			`^\s*(?:(?:public|private|protected|internal|static|readonly|const|volatile)\s+)*(?:var|[A-Za-z_][\w.]*(?:<[^()]*>)?(?:\[\])*\??)\s+[A-Za-z_]\w*\s*(?:=(?:[^=>]|$)|;)`,
		),
		Loops:        []string{"for", "foreach", "while", "do"},
		Conditionals: cBranches,
		Signatures: res(
			`^\s*using\s+System\b`,
			`\bConsole\.Write`,
			`^\s*namespace\s+[\w.]+`,
			`\{\s*get\s*;`,
			`\basync\s+Task\b`,
		),
	},
	{
		ID:            "Go",
		Extensions:    []string{".go"},
		LineComments:  slashes,
		BlockComments: cBlock,
		StringFences:  []string{"`"},
		Quotes:        `"'`,
		Imports:       res(`^\s*import\s*(?:\(|"|[\w.]+\s+")`),
		Functions:     res(`^\s*func\s+(?:\([^)]*\)\s*)?(?P<name>[A-Za-z_]\w*)\s*(?:\[[^\]]*\])?\s*\(`),
		Classes:       res(`^\s*type\s+(?P<name>[A-Za-z_]\w*)(?:\[[^\]]*\])?\s+(?P<kind>struct|interface)\b`),
		Variables: res(
			`^\s*(?:var|const)\s+[A-Za-z_(]`,
			`^\s*[A-Za-z_]\w*(?:\s*,\s*[A-Za-z_]\w*)*\s*:=`,
		),
		Loops:        []string{"for"},
		Conditionals: []string{"if", "switch", "select"},
		Signatures: res(
			`^\s*package\s+\w+\s*$`,
			`^\s*func\s+(?:\([^)]*\)\s*)?\w+\s*\(`,
			`:=`,
			`\bfmt\.\w+\(`,
			`\berr\s*!=\s*nil\b`,
			`\bgo\s+func\b`,
			`\bchan\b`,
		),
	},
	{
		ID:            "Rust",
		Extensions:    []string{".rs"},
		LineComments:  slashes,
		BlockComments: cBlock,
		Quotes:        `"`,
		Imports: res(
			`^\s*(?:pub\s+)?use\s+[\w:{]`,
			`^\s*extern\s+crate\s`,
			`^\s*(?:pub\s+)?mod\s+\w+\s*;`,
		),
		Functions: res(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:(?:const|async|unsafe|extern(?:\s+"[^"]*")?)\s+)*fn\s+(?P<name>[A-Za-z_]\w*)`),
		Classes:   res(`^\s*(?:pub(?:\([^)]*\))?\s+)?(?P<kind>struct|enum|trait|union)\s+(?P<name>[A-Za-z_]\w*)`),
		Variables: res(
			`^\s*let\s+(?:mut\s+)?[A-Za-z_(]`,
			`^\s*(?:pub\s+)?(?:const|static)\s+(?:mut\s+)?[A-Z_]\w*\s*:`,
		),
		Loops:        []string{"for", "while", "loop"},
		Conditionals: []string{"if", "match"},
		Signatures: res(
			`^\s*fn\s+main\s*\(`,
			`\blet\s+mut\b`,
			`\bprintln!\(`,
			`^\s*impl\b`,
			`&mut\b`,
			`::new\(`,
			`^\s*use\s+std::`,
		),
	},
	{
		ID:            "Ruby",
		Extensions:    []string{".rb", ".rake", ".gemspec"},
		LineComments:  hash,
		BlockComments: []BlockComment{{Open: "=begin", Close: "=end"}},
		Quotes:        `"'`,
		Imports: res(
			`^\s*require(?:_relative)?\b`,
			`^\s*(?:include|extend)\s+[A-Z]`,
		),
		Functions: res(`^\s*def\s+(?:self\.)?(?P<name>[A-Za-z_]\w*[?!=]?)`),
		Classes:   res(`^\s*(?P<kind>class|module)\s+(?P<name>[A-Z]\w*)`),
		Variables: res(
			`^\s*@{0,2}[a-z_]\w*\s*=(?:[^=~>]|$)`,
			`^\s*[A-Z][A-Z0-9_]*\s*=(?:[^=]|$)`,
		),
		Loops:        []string{"for", "while", "until", "loop"},
		Conditionals: []string{"if", "elsif", "unless", "case"},
		Signatures: res(
			`^\s*end\s*$`,
			`\bputs\b`,
			`\bdo\s*\|`,
			`\battr_(?:accessor|reader|writer)\b`,
			`^\s*elsif\b`,
			`^\s*require\s+['"]`,
		),
	},
	{
		ID:            "PHP",
		Extensions:    []string{".php", ".phtml"},
		LineComments:  []string{"//", "#"},
		BlockComments: cBlock,
		Quotes:        `"'`,
		Imports: res(
			`^\s*(?:require|require_once|include|include_once)\b`,
			`^\s*use\s+[\w\\]+`,
		),
		Functions: res(`^\s*(?:(?:public|private|protected|static|abstract|final)\s+)*function\s+&?(?P<name>[A-Za-z_]\w*)\s*\(`),
		Classes:   res(`^\s*(?:(?:abstract|final|readonly)\s+)*(?P<kind>class|interface|trait|enum)\s+(?P<name>[A-Za-z_]\w*)`),
		Variables: res(
			`^\s*\$[A-Za-z_]\w*\s*=(?:[^=>]|$)`,
			`^\s*(?:(?:public|private|protected|static|var|const|readonly)\s+)+(?:\??[\w\\]+\s+)?\$?[A-Za-z_]\w*\s*(?:=|;)`,
		),
		Loops:        []string{"for", "foreach", "while", "do"},
		Conditionals: []string{"if", "elseif", "switch", "match"},
		Signatures: res(
			`<\?php`,
			`\$this->`,
			`^\s*echo\b`,
			`^\s*\$\w+\s*=`,
			`^\s*namespace\s+[\w\\]+\s*;`,
		),
	},
	{
		ID:            "Swift",
		Extensions:    []string{".swift"},
		LineComments:  slashes,
		BlockComments: cBlock,
		StringFences:  []string{`"""`},
		Quotes:        `"`,
		Imports:       res(`^\s*import\s+\w`),
		Functions: res(
			`^\s*(?:(?:public|private|fileprivate|internal|open|static|class|override|final|mutating|@\w+)\s+)*func\s+(?P<name>[A-Za-z_]\w*)`,
		),
		Classes: res(
			`^\s*(?:(?:public|private|fileprivate|internal|open|final|indirect)\s+)*(?P<kind>class|struct|enum|protocol|extension|actor)\s+(?P<name>[A-Za-z_]\w*)`,
		),
		Variables: res(
			`^\s*(?:(?:public|private|fileprivate|internal|open|static|lazy|weak|final|override|@\w+)\s+)*(?:var|let)\s+[A-Za-z_(]`,
		),
		Loops:        []string{"for", "while", "repeat"},
		Conditionals: []string{"if", "guard", "switch"},
		Signatures: res(
			`^\s*import\s+(?:UIKit|Foundation|SwiftUI)\b`,
			`\bguard\s+let\b`,
			`\bfunc\s+\w+\s*\(.*\)\s*->`,
			`\bif\s+let\b`,
			`@IBOutlet\b`,
		),
	},
	{
		ID:            "Kotlin",
		Extensions:    []string{".kt", ".kts"},
		LineComments:  slashes,
		BlockComments: cBlock,
		StringFences:  []string{`"""`},
		Quotes:        `"'`,
		Imports:       res(`^\s*import\s+[\w.]+`),
		Functions: res(
			`^\s*(?:(?:public|private|protected|internal|open|override|abstract|suspend|inline|operator|infix|tailrec|external)\s+)*fun\s+(?:<[^>]*>\s*)?(?:[\w.]+\.)?(?P<name>[A-Za-z_]\w*)`,
		),
		Classes: res(
			`^\s*(?:(?:public|private|protected|internal|open|abstract|sealed|data|enum|inner|annotation|value)\s+)*(?P<kind>class|interface|object)\s+(?P<name>[A-Za-z_]\w*)`,
		),
		Variables:    res(`^\s*(?:(?:private|public|protected|internal|const|lateinit|override)\s+)*(?:val|var)\s+[A-Za-z_(]`),
		Loops:        cLoops,
		Conditionals: []string{"if", "when"},
		Signatures: res(
			`^\s*fun\s+main\s*\(`,
			`\bval\s+\w+\s*[:=]`,
			`^\s*(?:\w+\s+)*fun\s+\w+`,
			`\bdata\s+class\b`,
			`\bwhen\s*\(`,
		),
	},
	{
		ID:            "Scala",
		Extensions:    []string{".scala", ".sc"},
		LineComments:  slashes,
		BlockComments: cBlock,
		StringFences:  []string{`"""`},
		Quotes:        `"`,
		Imports:       res(`^\s*import\s+[\w.]+`),
		Functions:     res(`^\s*(?:(?:override|private|protected|final|implicit|lazy|inline)\s+)*def\s+(?P<name>[A-Za-z_]\w*)`),
		Classes: res(
			`^\s*(?:(?:abstract|final|sealed|case|implicit|private|protected)\s+)*(?P<kind>class|trait|object|enum)\s+(?P<name>[A-Za-z_]\w*)`,
		),
		Variables:    res(`^\s*(?:(?:private|protected|override|lazy|final|implicit)\s+)*(?:val|var)\s+[A-Za-z_(]`),
		Loops:        []string{"for", "while"},
		Conditionals: []string{"if", "match"},
		Signatures: res(
			`\bcase\s+class\b`,
			`\bobject\s+\w+\s+extends\s+App\b`,
			`^\s*def\s+\w+.*=\s*\{?\s*$`,
			`\bimplicit\b`,
			`^\s*import\s+scala\.`,
		),
	},
	{
		ID:           "Shell",
		Extensions:   []string{".sh", ".bash", ".zsh", ".ksh"},
		LineComments: hash,
		Quotes:       `"'`,
		Imports:      res(`^\s*(?:source|\.)\s+\S`),
		Functions: res(
			`^\s*(?:function\s+)?(?P<name>[A-Za-z_][\w-]*)\s*\(\s*\)`,
			`^\s*function\s+(?P<name>[A-Za-z_][\w-]*)`,
		),
		Variables:    res(`^\s*(?:export\s+|local\s+|readonly\s+|declare\s+(?:-\w+\s+)?)?[A-Za-z_]\w*=`),
		Loops:        []string{"for", "while", "until"},
		Conditionals: []string{"if", "elif", "case"},
		Signatures: res(
			`^#!\s*/(?:usr/)?bin/(?:env\s+)?(?:ba|z|k)?sh\b`,
			`^\s*echo\s`,
			`^\s*fi\s*$`,
			`^\s*done\s*$`,
			`\bthen\s*$`,
			`\$\{\w+\}`,
		),
	},
	{
		ID:            "Lua",
		Extensions:    []string{".lua"},
		LineComments:  dashes,
		BlockComments: []BlockComment{{Open: "--[[", Close: "]]"}},
		StringFences:  []string{"[["},
		Quotes:        `"'`,
		Imports:       res(`\brequire\b`),
		Functions: res(
			`^\s*(?:local\s+)?function\s+(?:[\w.]+[.:])?(?P<name>[A-Za-z_]\w*)\s*\(`,
			`^\s*(?:local\s+)?(?:[\w]+\.)*(?P<name>[A-Za-z_]\w*)\s*=\s*function\b`,
		),
		Variables:    res(`^\s*local\s+[A-Za-z_]`),
		Loops:        []string{"for", "while", "repeat"},
		Conditionals: []string{"if", "elseif"},
		Signatures: res(
			`\blocal\s+function\b`,
			`\bipairs\s*\(`,
			`\bpairs\s*\(`,
			`~=`,
			`\bthen\s*$`,
		),
	},
	{
		ID:            "Perl",
		Extensions:    []string{".pl", ".pm", ".t"},
		LineComments:  hash,
		BlockComments: []BlockComment{{Open: "=pod", Close: "=cut"}},
		Quotes:        `"'`,
		Imports:       res(`^\s*(?:use|require)\s+[\w:]+`),
		Functions:     res(`^\s*sub\s+(?P<name>[A-Za-z_]\w*)`),
		Classes:       res(`^\s*(?P<kind>package)\s+(?P<name>[A-Za-z_]\w*(?:::\w+)*)`),
		Variables:     res(`^\s*(?:my|our|local)\s+[\$@%(]`),
		Loops:         []string{"for", "foreach", "while", "until"},
		Conditionals:  []string{"if", "elsif", "unless"},
		Signatures: res(
			`^\s*use\s+strict\s*;`,
			`^\s*my\s+[\$@%]`,
			`\$_\b`,
			`=~\s*[ms]?/`,
			`^#!.*\bperl\b`,
		),
	},
	{
		ID:           "R",
		Extensions:   []string{".r", ".rmd"},
		LineComments: hash,
		Quotes:       `"'`,
		Imports:      res(`^\s*(?:library|require|source)\s*\(`),
		Functions:    res(`^\s*(?P<name>[A-Za-z_.][\w.]*)\s*(?:<-|=)\s*function\s*\(`),
		Classes: res(
			`^\s*(?P<name>[A-Za-z_.][\w.]*)\s*(?:<-|=)\s*(?P<kind>setRefClass|R6Class)\s*\(`,
		),
		Variables: res(
			`^\s*[A-Za-z_.][\w.]*\s*(?:<-|<<-)`,
			`^\s*[A-Za-z_.][\w.]*\s*=(?:[^=]|$)`,
		),
		Loops:        []string{"for", "while", "repeat"},
		Conditionals: []string{"if", "switch"},
		Signatures: res(
			`<-`,
			`\blibrary\s*\(`,
			`\bfunction\s*\(`,
			`\bdata\.frame\s*\(`,
			`\bc\(`,
		),
	},
	{
		ID:            "SQL",
		Extensions:    []string{".sql"},
		LineComments:  dashes,
		BlockComments: cBlock,
		Quotes:        `'"`,
		Functions:     res(`(?i)^\s*create\s+(?:or\s+replace\s+)?(?:function|procedure)\s+(?P<name>[\w.]+)`),
		Classes: res(
			`(?i)^\s*create\s+(?:or\s+replace\s+)?(?:temporary\s+|temp\s+)?(?P<kind>table|view)\s+(?:if\s+not\s+exists\s+)?(?P<name>[\w.]+)`,
		),
		Variables: res(
			`(?i)^\s*declare\s+@?\w+`,
			`(?i)^\s*set\s+@\w+\s*=`,
		),
		Loops:           []string{"while", "loop"},
		Conditionals:    []string{"if", "case"},
		CaseInsensitive: true,
		Signatures: res(
			`(?i)^\s*select\b.*\bfrom\b`,
			`(?i)^\s*insert\s+into\b`,
			`(?i)^\s*create\s+table\b`,
			`(?i)^\s*update\s+\w+\s+set\b`,
			`(?i)^\s*where\b`,
			`(?i)\bjoin\b.*\bon\b`,
		),
	},
	{
		ID:            "Haskell",
		Extensions:    []string{".hs", ".lhs"},
		LineComments:  dashes,
		BlockComments: []BlockComment{{Open: "{-", Close: "-}"}},
		Quotes:        `"`,
		Imports:       res(`^\s*import\s+(?:qualified\s+)?[A-Z][\w.]*`),
		Functions:     res(`^(?P<name>[a-z_][\w']*)\s*::`),
		Classes: res(
			`^\s*(?P<kind>data|newtype|class|instance)\s+(?:\([^)]*\)\s*=>\s*)?(?P<name>[A-Z][\w']*)`,
		),
		Variables:    res(`^\s*let\s+[a-z_]`),
		Conditionals: []string{"if", "case"},
		Signatures: res(
			`^\s*module\s+[A-Z][\w.]*(?:\s+\(.*\))?\s+where\b`,
			`::\s*\S.*->`,
			`^\s*import\s+qualified\b`,
			`^\s*main\s*=\s*do\b`,
			`\bwhere\s*$`,
		),
	},
	{
		ID:            "Dart",
		Extensions:    []string{".dart"},
		LineComments:  slashes,
		BlockComments: cBlock,
		StringFences:  []string{`'''`, `"""`},
		Quotes:        `"'`,
		Imports:       res(`^\s*(?:import|export|part)\s`),
		Functions: res(
			`^\s*(?:(?:static|external|factory|@\w+)\s+)*[\w<>?,\[\]]+\s+(?P<name>[A-Za-z_$][\w$]*)\s*(?:<[^>]*>)?\s*\([^;]*$`,
		),
		Classes: res(
			`^\s*(?:(?:abstract|sealed|base|final|interface)\s+)*(?P<kind>class|mixin|enum|extension)\s+(?P<name>[A-Za-z_$][\w$]*)`,
		),
		Variables: res(
			`^\s*(?:(?:static|late)\s+)*(?:var|final|const|int|double|String|bool|num|dynamic|[A-Z]\w*(?:<[^;=]*>)?\??)\s+[A-Za-z_$][\w$]*\s*(?:=(?:[^=]|$)|;)`,
		),
		Loops:        cLoops,
		Conditionals: cBranches,
		Signatures: res(
			`^\s*import\s+['"](?:package|dart):`,
			`\bvoid\s+main\s*\(\s*\)`,
			`\bWidget\s+build\s*\(`,
			`\bsetState\s*\(`,
			`@override\b`,
			`\bFuture<`,
		),
	},
}
