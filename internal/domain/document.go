package domain

// Document is one corpus record. Its identity is its row index in the corpus,
// which is also the row of its embedding in every space matrix.
type Document struct {
	Title    string
	Author   string
	Date     string
	Subject  string
	Abstract string
}
