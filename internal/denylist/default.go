package denylist

// DefaultPatterns contains the hardcoded deny rules. They are syntactic and
// independent of the allow-list: a line that matches any of them is rejected
// even when its base command is permitted.
var DefaultPatterns = Patterns{
	Rules: []RuleSpec{
		{
			ID:          "shell-metacharacter",
			Description: "shell metacharacters and command separators",
			Pattern:     "[;&|`$()\\\\\\r\\n\\x00]",
		},
		{
			ID:          "filesystem-mutation",
			Description: "commands that modify the filesystem",
			Pattern:     `(?i)\b(rm|rmdir|mv|cp|dd|mkfs(\.\w+)?|chmod|chown|chgrp|truncate|shred|ln|touch|mkdir|tee)\b`,
		},
		{
			ID:          "network-client",
			Description: "network clients",
			Pattern:     `(?i)\b(curl|wget|nc|ncat|netcat|socat|ssh|scp|sftp|telnet|ftp|rsync)\b`,
		},
		{
			ID:          "privilege-escalation",
			Description: "privilege escalation and system modification",
			Pattern:     `(?i)\b(sudo|su|doas|pkexec|passwd|chpasswd|useradd|usermod|userdel|groupadd|visudo|systemctl|service|mount|umount|shutdown|reboot|poweroff|halt|crontab|modprobe|insmod|sysctl)\b`,
		},
		{
			ID:          "process-control",
			Description: "process control commands",
			Pattern:     `(?i)\b(kill|killall|pkill|xkill|nohup|disown|renice|nice|bg|fg|jobs)\b`,
		},
		{
			ID:          "package-manager",
			Description: "package manager mutations",
			Pattern:     `(?i)\b(apt|apt-get|aptitude|yum|dnf|zypper|pacman|apk|brew|snap|pip|pip3|pipx|npm|yarn|pnpm|gem|cargo|go)\s+(install|i|add|remove|rm|uninstall|purge|update|upgrade|get)\b`,
		},
		{
			ID:          "interactive-program",
			Description: "interactive editors and pagers",
			Pattern:     `(?i)\b(vi|vim|nvim|view|nano|pico|emacs|ed|less|more|most|man|top|htop)\b`,
		},
		{
			ID:          "session-builtin",
			Description: "shell built-ins that alter session state",
			Pattern:     `(?i)\b(cd|pushd|popd|export|unset|source|alias|unalias|exec|eval|exit|ulimit|umask|trap|declare|typeset|readonly|shopt)\b`,
		},
		{
			ID:          "redirection",
			Description: "input or output redirection",
			Pattern:     `[<>]`,
		},
		{
			ID:          "glob-wildcard",
			Description: "glob and wildcard characters",
			Pattern:     `[*?\[\]{}~]`,
		},
	},
}
