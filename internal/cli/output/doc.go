// Package output renders memkv-cli results.
//
// Server replies print redis-cli style in table mode ("(integer) 1",
// "(nil)", numbered arrays) and as plain values in json and yaml mode,
// so scripts can consume them. Structs and slices of structs, such as
// the admin /stats body, render as key/value or column tables.
package output
