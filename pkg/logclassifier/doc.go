// Package logclassifier diagnoses support-ticket log archives against a
// knowledge base of known failure signatures.
//
// Quick start:
//
//	c, err := logclassifier.New(logclassifier.WithKnowledgeBaseFile("kb.csv"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	d := c.Diagnose(zipBytes)
//	fmt.Println(d.Tags)    // [short-storage]
//	fmt.Println(d.Comment) // problem and solution text per tag
//
// A Classifier holds only read-only state and is safe for concurrent use.
// Create once, reuse across tickets.
package logclassifier
