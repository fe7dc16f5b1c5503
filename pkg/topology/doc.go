/*
Package topology loads and validates pipeline declarations.

A topology is a TOML document listing buffers and stages:

	name = "uuid-demo"

	#alias SIZE 50

	[run]
	idle_timeout = "30s"

	[[buffers]]
	name = "raw"
	capacity = SIZE

	[[stages]]
	name = "producer"
	type = "generator"
	outputs = ["raw"]
	instances = 2

	[[stages]]
	name = "consumer"
	type = "sink"
	input = "raw"

	[stages.settings]
	limit = 100

Lines of the form `#alias NAME VALUE` are removed before parsing and every
other occurrence of NAME in the document is replaced by VALUE. Because the
directive starts with '#', an aliased file is still valid TOML for editors.

Validation rejects duplicated buffer or stage names, references to
undeclared buffers, blank output names and negative instance counts. A
stage without a name receives a generated UUID, and a missing instance
count means one instance. All failures are *errors.ValidationError values
wrapping errors.ErrInvalidConfiguration.
*/
package topology
