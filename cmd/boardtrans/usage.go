package main

// usageBody lists examples, subcommands and flags. The Usage: header is
// prepended per command.
const usageBody = `{{if .HasAvailableSubCommands}}  {{.CommandPath}} [command]
{{end}}{{if .HasExample}}
Examples:
{{.Example}}
{{end}}{{if .HasAvailableSubCommands}}
Commands:
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}  {{rpad .Name .NamePadding }} {{.Short}}
{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}
Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}
{{end}}{{if .HasAvailableInheritedFlags}}
Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}
{{end}}{{if .HasAvailableSubCommands}}
Use "{{.CommandPath}} [command] --help" for more information about a command.
{{end}}`

const subcommandUsageTemplate = "Usage:\n  {{.UseLine}}\n" + usageBody

// The root command also translates its positional arguments.
const rootUsageTemplate = "Usage:\n  boardtrans \"<text>\" [flags]\n" + usageBody
