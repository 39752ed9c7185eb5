// Package language is the single source of truth for per-language container
// images, source filenames, and compile/run commands (C1).
package language

// Profile defines how to compile and run one supported language.
type Profile struct {
	ID             string
	Image          string
	SourceFile     string
	CompileCmd     string // empty when the language needs no compile phase
	RunCmd         string
	Env            map[string]string
}

var registry = map[string]Profile{
	"java": {
		ID:         "java",
		Image:      "eclipse-temurin:17-jdk",
		SourceFile: "Main.java",
		CompileCmd: "javac -d /app Main.java",
		RunCmd:     "java -cp .:/app -XX:MaxRAM=256m Main",
	},
	"python": {
		ID:         "python",
		Image:      "python:3.11-slim",
		SourceFile: "app.py",
		RunCmd:     "python -B -E -S app.py",
	},
	"c": {
		ID:         "c",
		Image:      "gcc:11",
		SourceFile: "main.c",
		CompileCmd: "gcc -O2 -std=c11 -o /app/main main.c -lm",
		RunCmd:     "/app/main",
	},
	"cpp": {
		ID:         "cpp",
		Image:      "gcc:11",
		SourceFile: "main.cpp",
		CompileCmd: "g++ -O2 -std=c++17 -o /app/main main.cpp -lm",
		RunCmd:     "/app/main",
	},
	"javascript": {
		ID:         "javascript",
		Image:      "node:18-slim",
		SourceFile: "index.js",
		RunCmd:     "node --max-old-space-size=256 index.js",
	},
	"csharp": {
		ID:         "csharp",
		Image:      "mcr.microsoft.com/dotnet/sdk:7.0",
		SourceFile: "Submission.cs",
		// No bare `dotnet build` produces a native /app/build/app binary, so
		// compiling csharp is scaffold-a-console-project, swap in the
		// submitted source, then self-contained publish to a single file.
		CompileCmd: `sh -c "dotnet new console -o /app/build --force && cp /app/Submission.cs /app/build/Program.cs && dotnet publish /app/build -c Release -r linux-x64 --self-contained true -p:PublishSingleFile=true -p:AssemblyName=app -o /app/build"`,
		RunCmd:     "/app/build/app",
	},
}

// Lookup resolves a language tag to its Profile. ok is false when the tag is
// not supported and no Profile is returned.
func Lookup(id string) (Profile, bool) {
	p, ok := registry[id]
	return p, ok
}

// Supported returns every registered language tag.
func Supported() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	return ids
}

// NeedsCompile reports whether the profile has a compile phase.
func (p Profile) NeedsCompile() bool {
	return p.CompileCmd != ""
}

// IsBinaryRun reports whether the run phase executes a compiled binary
// requiring an executable bit (c/cpp).
func (p Profile) IsBinaryRun() bool {
	return p.ID == "c" || p.ID == "cpp"
}
