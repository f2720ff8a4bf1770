package protocol

import (
	"fmt"
	"strconv"
)

// ValidateArray validates the given array header '*#' and returns the number after '*'
func ValidateArray(str string) (int, error) {
	if len(str) == 0 || str[0] != '*' {
		return 0, fmt.Errorf("wrong array token '%s'", str)
	}

	ret, err := strconv.Atoi(str[1:])
	if err != nil {
		return 0, fmt.Errorf("wrong int format after '*': '%s'", str)
	}

	return ret, nil
}

// ValidateBulkString validates the bulk string header '$#' and returns the length after '$'
func ValidateBulkString(str string) (int, error) {
	if len(str) == 0 || str[0] != '$' {
		return 0, fmt.Errorf("not a bulk string token '%s'", str)
	}

	ret, err := strconv.Atoi(str[1:])
	if err != nil {
		return 0, fmt.Errorf("wrong int format after '$': '%s'", str)
	}

	return ret, nil
}
