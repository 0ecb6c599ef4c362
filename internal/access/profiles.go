package access

// BuiltinProfiles returns the eleven CLI profiles Porter ships with,
// keyed by CLI name. Grounded on the shape of a tool-profile table
// (named presets resolved once at config-load time), repurposed here
// from "which tools an agent may call" to "which CLI subcommand paths
// are read-only by default."
func BuiltinProfiles() map[string]*Profile {
	return map[string]*Profile{
		"aws": {
			Name:               "aws",
			DefaultInjectFlags: []string{"--no-cli-pager"},
			ExpandByDefault:    true,
			ReadOnlySubcommands: [][]string{
				{"s3", "ls"}, {"s3", "cp", "--dryrun"},
				{"ec2", "describe-instances"}, {"ec2", "describe-images"},
				{"sts", "get-caller-identity"},
				{"iam", "get-user"}, {"iam", "list-users"},
				{"logs", "describe-log-groups"}, {"logs", "get-log-events"},
			},
		},
		"gcloud": {
			Name:            "gcloud",
			ExpandByDefault: true,
			ReadOnlySubcommands: [][]string{
				{"compute", "instances", "list"}, {"compute", "instances", "describe"},
				{"projects", "list"}, {"projects", "describe"},
				{"storage", "ls"}, {"config", "list"},
			},
		},
		"kubectl": {
			Name:            "kubectl",
			ExpandByDefault: true,
			ReadOnlySubcommands: [][]string{
				{"get"}, {"describe"}, {"logs"}, {"top"}, {"version"}, {"explain"},
			},
		},
		"gh": {
			Name:            "gh",
			ExpandByDefault: true,
			ReadOnlySubcommands: [][]string{
				{"pr", "list"}, {"pr", "view"}, {"pr", "diff"},
				{"issue", "list"}, {"issue", "view"},
				{"repo", "view"}, {"repo", "list"},
				{"run", "list"}, {"run", "view"},
			},
		},
		"az": {
			Name:            "az",
			ExpandByDefault: true,
			ReadOnlySubcommands: [][]string{
				{"vm", "list"}, {"vm", "show"},
				{"group", "list"}, {"group", "show"},
				{"account", "show"}, {"account", "list"},
			},
		},
		"ansible": {
			Name:            "ansible",
			ExpandByDefault: false,
			ReadOnlySubcommands: [][]string{
				{"--list-hosts"}, {"--list-tasks"}, {"--syntax-check"},
			},
		},
		"gitlab": {
			Name:            "gitlab",
			ExpandByDefault: true,
			ReadOnlySubcommands: [][]string{
				{"project", "list"}, {"project", "view"},
				{"mr", "list"}, {"mr", "view"},
				{"issue", "list"}, {"issue", "view"},
			},
		},
		"doggo": {
			Name:            "doggo",
			ExpandByDefault: false,
			AlwaysReadOnly:  true,
		},
		"rg": {
			Name:            "rg",
			ExpandByDefault: false,
			AlwaysReadOnly:  true,
		},
		"tldr": {
			Name:            "tldr",
			ExpandByDefault: false,
			AlwaysReadOnly:  true,
		},
		"whois": {
			Name:            "whois",
			ExpandByDefault: false,
			AlwaysReadOnly:  true,
		},
	}
}
