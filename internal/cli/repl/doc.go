// Package repl implements the interactive mode of memkv-cli.
//
// Lines are split into arguments with redis-cli quoting rules and handed
// to an Executor. The REPL itself handles exit, help and history;
// everything else is the executor's business.
package repl
