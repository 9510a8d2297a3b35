package indexer

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

const (
	bencodeUnexpectedEndMessageConstant = "unexpected end of bencode data"
	bencodeInvalidPrefixTemplate        = "invalid bencode prefix %q at offset %d"
	bencodeNonStringKeyMessageConstant  = "bencode dictionary key is not a byte string"
	bencodeNotDictionaryMessage         = "top-level bencode value is not a dictionary"
	bencodeInfoDictionaryKeyConstant    = "info"
)

// ErrBencodeTruncated indicates the bencode stream ended mid-value.
var ErrBencodeTruncated = errors.New(bencodeUnexpectedEndMessageConstant)

// ErrBencodeDictionaryKey indicates a dictionary key was not a byte string.
var ErrBencodeDictionaryKey = errors.New(bencodeNonStringKeyMessageConstant)

// ErrBencodeNotDictionary indicates the top-level torrent value was not a dictionary.
var ErrBencodeNotDictionary = errors.New(bencodeNotDictionaryMessage)

// bencodeValue holds any decoded bencode value: int64, []byte,
// []bencodeValue, or map[string]bencodeValue.
type bencodeValue any

type bencodeDecoder struct {
	data []byte
	// infoSlice holds the raw bencoded bytes of the top-level "info"
	// dictionary value so infohash digests match the original encoding.
	infoSlice []byte
}

// decodeBencodeDocument decodes a complete bencode document and captures the
// raw bytes of the "info" dictionary entry when one is present.
func decodeBencodeDocument(data []byte) (bencodeValue, []byte, error) {
	decoder := &bencodeDecoder{data: data}
	decodedValue, _, decodeError := decoder.decodeValue(0, true)
	if decodeError != nil {
		return nil, nil, decodeError
	}
	return decodedValue, decoder.infoSlice, nil
}

func (decoder *bencodeDecoder) decodeValue(offset int, captureInfo bool) (bencodeValue, int, error) {
	if offset >= len(decoder.data) {
		return nil, 0, ErrBencodeTruncated
	}

	switch prefix := decoder.data[offset]; {
	case prefix == 'i':
		return decoder.decodeInteger(offset)
	case prefix == 'l':
		return decoder.decodeList(offset, captureInfo)
	case prefix == 'd':
		return decoder.decodeDictionary(offset, captureInfo)
	case prefix >= '0' && prefix <= '9':
		return decoder.decodeByteString(offset)
	default:
		return nil, 0, fmt.Errorf(bencodeInvalidPrefixTemplate, string(prefix), offset)
	}
}

func (decoder *bencodeDecoder) decodeInteger(offset int) (bencodeValue, int, error) {
	terminatorIndex := bytes.IndexByte(decoder.data[offset:], 'e')
	if terminatorIndex < 0 {
		return nil, 0, ErrBencodeTruncated
	}
	terminatorIndex += offset
	parsedInteger, parseError := strconv.ParseInt(string(decoder.data[offset+1:terminatorIndex]), 10, 64)
	if parseError != nil {
		return nil, 0, parseError
	}
	return parsedInteger, terminatorIndex + 1, nil
}

func (decoder *bencodeDecoder) decodeByteString(offset int) (bencodeValue, int, error) {
	separatorIndex := bytes.IndexByte(decoder.data[offset:], ':')
	if separatorIndex < 0 {
		return nil, 0, ErrBencodeTruncated
	}
	separatorIndex += offset
	stringLength, parseError := strconv.Atoi(string(decoder.data[offset:separatorIndex]))
	if parseError != nil {
		return nil, 0, parseError
	}
	contentStart := separatorIndex + 1
	contentEnd := contentStart + stringLength
	if stringLength < 0 || contentEnd > len(decoder.data) {
		return nil, 0, ErrBencodeTruncated
	}
	return decoder.data[contentStart:contentEnd], contentEnd, nil
}

func (decoder *bencodeDecoder) decodeList(offset int, captureInfo bool) (bencodeValue, int, error) {
	offset++
	listValues := []bencodeValue{}
	for {
		if offset >= len(decoder.data) {
			return nil, 0, ErrBencodeTruncated
		}
		if decoder.data[offset] == 'e' {
			return listValues, offset + 1, nil
		}
		elementValue, nextOffset, decodeError := decoder.decodeValue(offset, captureInfo)
		if decodeError != nil {
			return nil, 0, decodeError
		}
		listValues = append(listValues, elementValue)
		offset = nextOffset
	}
}

func (decoder *bencodeDecoder) decodeDictionary(offset int, captureInfo bool) (bencodeValue, int, error) {
	offset++
	dictionaryValues := map[string]bencodeValue{}
	for {
		if offset >= len(decoder.data) {
			return nil, 0, ErrBencodeTruncated
		}
		if decoder.data[offset] == 'e' {
			return dictionaryValues, offset + 1, nil
		}

		keyValue, keyEnd, keyError := decoder.decodeValue(offset, false)
		if keyError != nil {
			return nil, 0, keyError
		}
		keyBytes, keyIsString := keyValue.([]byte)
		if !keyIsString {
			return nil, 0, ErrBencodeDictionaryKey
		}
		keyName := string(keyBytes)

		valueStart := keyEnd
		entryValue, valueEnd, valueError := decoder.decodeValue(valueStart, captureInfo && keyName != bencodeInfoDictionaryKeyConstant)
		if valueError != nil {
			return nil, 0, valueError
		}
		if captureInfo && keyName == bencodeInfoDictionaryKeyConstant && decoder.infoSlice == nil {
			decoder.infoSlice = decoder.data[valueStart:valueEnd]
		}

		dictionaryValues[keyName] = entryValue
		offset = valueEnd
	}
}
