// Package command defines the memkv-cli commands.
//
// Every key command dials the server, sends one request and prints the
// reply in the selected output format. Without a command the CLI starts
// an interactive session (see package repl). Admin commands talk to the
// HTTP admin listener instead of the RESP port.
package command
