// Package compiler provides the Quiche lexer, parser, and code generator
// that translate a Python-syntax surface language to Rust source.
//
// Pipeline: source → Preprocess → Lex → Parse (classify, desugar) → Generate → Rust text
package compiler
