// Package recipe implements the component lifecycle processor (component
// F): decoding recipe.json instruction streams, executing a planned
// Cookbook's copy/copy_dir/run_command/run_script steps in order, and
// committing each component's final version and restart outcome.
package recipe
