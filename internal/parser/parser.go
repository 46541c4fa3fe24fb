package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/wordvault/wordvault/internal/domain"
)

// Vocabulary files are plain markdown with line-oriented entries:
//
//	W: serendipity
//	M: finding something good without looking for it
//	E: Meeting her was pure serendipity.
//	T: noun, C1
//
// A new W: line or a "---" separator starts the next entry. M, E and T
// blocks may span multiple lines.
const (
	wordPrefix    = "W:"
	meaningPrefix = "M:"
	examplePrefix = "E:"
	tagsPrefix    = "T:"
)

type state int

const (
	seeking state = iota
	readingWord
	readingMeaning
	readingExample
	readingTags
)

// ParseFile reads a file from the given path and extracts all entries.
func ParseFile(path string) ([]domain.Flashcard, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all entries.
func Parse(r io.Reader) ([]domain.Flashcard, error) {
	scanner := bufio.NewScanner(r)
	var cards []domain.Flashcard
	var currentCard domain.Flashcard
	var currentBlock []string
	currentState := seeking

	flushBlock := func() {
		if len(currentBlock) == 0 {
			return
		}
		content := strings.Join(currentBlock, "\n")
		switch currentState {
		case readingWord:
			currentCard.Word = strings.TrimSpace(content)
		case readingMeaning:
			currentCard.Meaning = content
		case readingExample:
			currentCard.Example = content
		case readingTags:
			currentCard.Tags = domain.ParseTags(strings.ReplaceAll(content, "\n", ","))
		}
		currentBlock = nil
	}

	finishCard := func() {
		flushBlock()
		if currentCard.Word != "" {
			cards = append(cards, currentCard)
		}
		currentCard = domain.Flashcard{}
		currentState = seeking
	}

	stripPrefix := func(line, prefix string) string {
		content := line[len(prefix):]
		if strings.HasPrefix(content, " ") {
			content = content[1:]
		}
		return content
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == "---" {
			finishCard()
			continue
		}

		switch {
		case strings.HasPrefix(line, wordPrefix):
			if currentState != seeking { // a new word always starts a new card
				finishCard()
			}
			currentState = readingWord
			currentBlock = append(currentBlock, stripPrefix(line, wordPrefix))
		case strings.HasPrefix(line, meaningPrefix):
			flushBlock()
			currentState = readingMeaning
			currentBlock = append(currentBlock, stripPrefix(line, meaningPrefix))
		case strings.HasPrefix(line, examplePrefix):
			flushBlock()
			currentState = readingExample
			currentBlock = append(currentBlock, stripPrefix(line, examplePrefix))
		case strings.HasPrefix(line, tagsPrefix):
			flushBlock()
			currentState = readingTags
			currentBlock = append(currentBlock, stripPrefix(line, tagsPrefix))
		default:
			if currentState != seeking {
				currentBlock = append(currentBlock, line)
			}
		}
	}

	finishCard() // finish the very last card in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cards, nil
}
