// Package interfaces defines the collaborators the toolkit calls out to:
// a [Prompter] for secrets and confirmations requested mid-operation, and a
// [HostStore] for per-site records.
//
// The directory package's stores implement HostStore. The command-line tool
// implements Prompter on a terminal; [ScriptedPrompter] replays canned
// answers for tests:
//
//	p := interfaces.NewScriptedPrompter(
//	    interfaces.Answer{Text: "s3cret-message-password"},
//	    interfaces.Answer{Cancel: true},
//	)
package interfaces
