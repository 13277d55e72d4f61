// Command plk is the PassLok command-line tool.
//
// It encrypts and decrypts PassLok messages, hides them in PNG and JPEG
// images, synthesizes and stores per-site passwords and keeps the contact
// directory. Settings come from a YAML file (see DefaultConfigPath) and
// can be overridden by flags given before the command name:
//
//	plk -email alice@example.com lock
//	echo 'meet at noon' | plk encrypt -to bob
//	plk decrypt < message.txt
//	plk hide -in cover.jpg -out hidden.jpg < message.txt
//	plk synth -chars alphanumeric -length 16 example.com
//
// Passwords are asked for on the terminal. Each invocation starts locked;
// "plk shell" keeps one session open across commands until it times out.
package main
