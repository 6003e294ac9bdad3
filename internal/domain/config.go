package domain

// DefaultCollection is the knowledge-base collection queried when none is configured.
const DefaultCollection = "PassportKnowledgeBase"
