// Package embedding provides text embedding providers for the semantic auditor.
//
// OllamaEmbedder calls the /api/embeddings endpoint of an Ollama server.
// HashEmbedder needs no server: it hashes word unigrams and bigrams into a
// fixed-size vector, which is enough to tell related sections from
// unrelated ones in offline runs and tests.
package embedding
