package allowlist

// Categories group entries in listings.
const (
	CategoryFileInspection = "file-inspection"
	CategoryDirectory      = "directory"
	CategorySystemInfo     = "system-info"
	CategoryDevelopment    = "development"
	CategoryText           = "text"
	CategoryHelp           = "help"
)

// DefaultEntries is the built-in allow-list. Every flag a command may take is
// listed literally; RequiresFile additionally admits plain path arguments.
var DefaultEntries = []Entry{
	// read-only file inspection
	{
		Command:      "cat",
		Description:  "Print file contents",
		Category:     CategoryFileInspection,
		AllowedArgs:  []string{"-n", "-b", "-A"},
		RequiresFile: true,
	},
	{
		Command:      "head",
		Description:  "Print the first lines of a file",
		Category:     CategoryFileInspection,
		AllowedArgs:  []string{"-n", "-c", "-5", "-10", "-20", "-50", "-100"},
		RequiresFile: true,
	},
	{
		Command:      "tail",
		Description:  "Print the last lines of a file",
		Category:     CategoryFileInspection,
		AllowedArgs:  []string{"-n", "-c", "-5", "-10", "-20", "-50", "-100"},
		RequiresFile: true,
	},
	{
		Command:      "wc",
		Description:  "Count lines, words and bytes",
		Category:     CategoryFileInspection,
		AllowedArgs:  []string{"-l", "-w", "-c", "-m"},
		RequiresFile: true,
	},
	{
		Command:      "stat",
		Description:  "Show file metadata",
		Category:     CategoryFileInspection,
		AllowedArgs:  []string{"-L", "-t"},
		RequiresFile: true,
	},
	{
		Command:      "file",
		Description:  "Identify file types",
		Category:     CategoryFileInspection,
		AllowedArgs:  []string{"-b", "-i", "-L", "--mime-type"},
		RequiresFile: true,
	},

	// directory listing and search
	{
		Command:      "ls",
		Description:  "List directory contents",
		Category:     CategoryDirectory,
		AllowedArgs:  []string{"-l", "-a", "-A", "-la", "-al", "-lh", "-lah", "-1", "-R", "-t", "-S", "-h", "-r"},
		RequiresFile: true,
	},
	{
		Command:     "pwd",
		Description: "Print the working directory",
		Category:    CategoryDirectory,
		AllowedArgs: []string{"-L", "-P"},
	},
	{
		Command:      "find",
		Description:  "Search for files by name or type",
		Category:     CategoryDirectory,
		AllowedArgs:  []string{"-name", "-iname", "-type", "-maxdepth", "-mindepth", "-newer", "-empty"},
		RequiresFile: true,
	},
	{
		Command:      "tree",
		Description:  "Show a directory tree",
		Category:     CategoryDirectory,
		AllowedArgs:  []string{"-L", "-a", "-d", "-f", "--noreport"},
		RequiresFile: true,
	},
	{
		Command:      "du",
		Description:  "Summarize disk usage",
		Category:     CategoryDirectory,
		AllowedArgs:  []string{"-h", "-s", "-sh", "-a", "-c", "-d"},
		RequiresFile: true,
	},

	// read-only system and process information
	{
		Command:     "whoami",
		Description: "Print the effective user",
		Category:    CategorySystemInfo,
	},
	{
		Command:     "date",
		Description: "Print the date and time",
		Category:    CategorySystemInfo,
		AllowedArgs: []string{"-u", "-R", "-I"},
	},
	{
		Command:     "uname",
		Description: "Print system information",
		Category:    CategorySystemInfo,
		AllowedArgs: []string{"-a", "-s", "-r", "-m", "-n", "-v"},
	},
	{
		Command:     "ps",
		Description: "List running processes",
		Category:    CategorySystemInfo,
		AllowedArgs: []string{"aux", "-e", "-f", "-ef", "-A"},
	},
	{
		Command:     "df",
		Description: "Report filesystem disk space",
		Category:    CategorySystemInfo,
		AllowedArgs: []string{"-h", "-k", "-T", "-i"},
	},
	{
		Command:     "uptime",
		Description: "Show how long the system has been running",
		Category:    CategorySystemInfo,
		AllowedArgs: []string{"-p", "-s"},
	},
	{
		Command:     "hostname",
		Description: "Print the host name",
		Category:    CategorySystemInfo,
		AllowedArgs: []string{"-f", "-s", "-d"},
	},

	// constrained development tools
	{
		Command:     "git",
		Description: "Inspect a git repository (read-only subcommands)",
		Category:    CategoryDevelopment,
		AllowedArgs: []string{
			"status", "log", "diff", "show", "branch", "remote",
			"--oneline", "--stat", "--short", "--name-only", "--no-color", "-s", "-v", "-5", "-10", "-20",
		},
	},
	{
		Command:     "go",
		Description: "Print Go toolchain information",
		Category:    CategoryDevelopment,
		AllowedArgs: []string{"version", "env"},
	},
	{
		Command:     "node",
		Description: "Print the Node.js version",
		Category:    CategoryDevelopment,
		AllowedArgs: []string{"--version", "-v"},
	},
	{
		Command:     "npm",
		Description: "Print npm version or installed packages",
		Category:    CategoryDevelopment,
		AllowedArgs: []string{"--version", "-v", "ls", "list", "--depth=0"},
	},
	{
		Command:     "python3",
		Description: "Print the Python version",
		Category:    CategoryDevelopment,
		AllowedArgs: []string{"--version", "-V"},
	},

	// safe text filtering
	{
		Command:      "grep",
		Description:  "Search file contents for a pattern",
		Category:     CategoryText,
		AllowedArgs:  []string{"-i", "-n", "-r", "-l", "-c", "-v", "-w", "-E", "-F", "-H", "-s"},
		RequiresFile: true,
	},
	{
		Command:      "sort",
		Description:  "Sort lines of a file",
		Category:     CategoryText,
		AllowedArgs:  []string{"-r", "-n", "-u", "-f"},
		RequiresFile: true,
	},
	{
		Command:      "uniq",
		Description:  "Report or filter repeated lines",
		Category:     CategoryText,
		AllowedArgs:  []string{"-c", "-d", "-u", "-i"},
		RequiresFile: true,
	},
	{
		Command:      "echo",
		Description:  "Print words",
		Category:     CategoryText,
		AllowedArgs:  []string{"-n"},
		RequiresFile: true,
	},

	// help and documentation
	{
		Command:      "which",
		Description:  "Locate a program on PATH",
		Category:     CategoryHelp,
		AllowedArgs:  []string{"-a"},
		RequiresFile: true,
	},
	{
		Command:      "whatis",
		Description:  "Show one-line manual descriptions",
		Category:     CategoryHelp,
		RequiresFile: true,
	},
}
