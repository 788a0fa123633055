package core

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// EncodeStory renders every byte of story as two lowercase hex digits
func EncodeStory(story string) string {
	return hex.EncodeToString([]byte(story))
}

// DecodeStory reverses EncodeStory
func DecodeStory(encoded string) (string, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return string(raw), nil
}

// EncodeStarRecord returns a copy of record with its story encoded
func EncodeStarRecord(record StarRecord) StarRecord {
	encoded := record
	if record.Star.Magnitude != nil {
		mag := *record.Star.Magnitude
		encoded.Star.Magnitude = &mag
	}
	encoded.Star.Story = EncodeStory(record.Star.Story)
	return encoded
}

// DecodeStarRecord adds the readable story to an encoded record
func DecodeStarRecord(record StarRecord) (DecodedStarRecord, error) {
	story, err := DecodeStory(record.Star.Story)
	if err != nil {
		return DecodedStarRecord{}, err
	}
	return DecodedStarRecord{
		Address: record.Address,
		Star: DecodedStar{
			StarCoordinates: record.Star,
			StoryDecoded:    story,
		},
	}, nil
}

// DecodeStarBlock returns a copy of block whose body carries both the encoded
// story and storyDecoded. Genesis blocks are returned untouched.
func DecodeStarBlock(block Block) (Block, error) {
	if block.IsGenesis() {
		return block, nil
	}

	record, err := block.StarRecord()
	if err != nil {
		return Block{}, err
	}
	decoded, err := DecodeStarRecord(record)
	if err != nil {
		return Block{}, fmt.Errorf("block %d: %w", block.Height, err)
	}
	body, err := json.Marshal(decoded)
	if err != nil {
		return Block{}, fmt.Errorf("failed to marshal decoded body: %w", err)
	}

	out := block
	out.Body = body
	return out, nil
}
