package sstv

/*------------------------------------------------------------------
 *
 * Purpose:   	Morse code station identification.
 *
 * Description:	Some operators prefer, or are required, to identify in
 *		CW after a picture.  The text becomes a list of tone
 *		and silence events like everything else, so it shares
 *		the phase accumulator and the delivery path.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"unicode"
)

const MORSE_TONE = 800

const DefaultMorseWPM = 20

// TIME_UNITS_TO_MS is the PARIS timing: one unit is 1200/wpm ms.
func TIME_UNITS_TO_MS(tu int, wpm int) float64 {
	return float64(tu*1200) / float64(wpm)
}

var MORSE = map[rune]string{
	'A': ".-",
	'B': "-...",
	'C': "-.-.",
	'D': "-..",
	'E': ".",
	'F': "..-.",
	'G': "--.",
	'H': "....",
	'I': "..",
	'J': ".---",
	'K': "-.-",
	'L': ".-..",
	'M': "--",
	'N': "-.",
	'O': "---",
	'P': ".--.",
	'Q': "--.-",
	'R': ".-.",
	'S': "...",
	'T': "-",
	'U': "..-",
	'V': "...-",
	'W': ".--",
	'X': "-..-",
	'Y': "-.--",
	'Z': "--..",
	'1': ".----",
	'2': "..---",
	'3': "...--",
	'4': "....-",
	'5': ".....",
	'6': "-....",
	'7': "--...",
	'8': "---..",
	'9': "----.",
	'0': "-----",
	'.': ".-.-.-",
	',': "--..--",
	'?': "..--..",
	'/': "-..-.",

	'=':  "-...-", /* from ARRL */
	'-':  "-....-",
	')':  "-.--.-", /* does not distinguish open/close */
	':':  "---...",
	';':  "-.-.-.",
	'"':  ".-..-.",
	'\'': ".----.",
	'$':  "...-..-",

	'!': "-.-.--", /* more from wikipedia */
	'(': "-.--.",
	'&': ".-...",
	'+': ".-.-.",
	'_': "..--.-",
	'@': ".--.-.",
}

// morseLookup returns the code for ch.  Space and anything unknown are not found
// and are sent as a gap.
func morseLookup(ch rune) (string, bool) {
	var enc, ok = MORSE[unicode.ToUpper(ch)]
	return enc, ok
}

/*-------------------------------------------------------------------
 *
 * Name:        morseUnitsCh
 *
 * Returns:	1 for E (.)
 *		3 for T (-)
 *		3 for I (..)
 *		etc.
 *
 *		The one unexpected result is 1 for space.  Why not 7?
 *		When a space appears between two other characters,
 *		we already have 3 before and after so only 1 more is needed.
 *
 *--------------------------------------------------------------------*/

func morseUnitsCh(ch rune) int {
	var enc, ok = morseLookup(ch)
	if !ok {
		return 1
	}

	var units = len(enc) - 1

	for _, k := range enc {
		if k == '.' {
			units++
		} else {
			units += 3
		}
	}

	return units
}

// morseUnitsStr: 1 for E, 5 for EE (1 + 3 + 1), 9 for E E (1 + 7 + 1).
func morseUnitsStr(str string) int {
	var runes = []rune(str)
	if len(runes) == 0 {
		return 0
	}

	var units = (len(runes) - 1) * 3

	for _, k := range runes {
		units += morseUnitsCh(k)
	}

	return units
}

func ValidateMorseWPM(wpm int) error {
	if wpm < 5 || wpm > 60 {
		return fmt.Errorf("%w: Morse speed %d WPM must be 5 to 60", ErrInvalidConfiguration, wpm)
	}

	return nil
}

/*-------------------------------------------------------------------
 *
 * Name:        MorseTones
 *
 * Purpose:    	Given a string, generate appropriate lengths of
 *		tone and silence.
 *
 * Inputs:	str	- Character string to send.
 *		wpm	- Speed in words per minute.
 *
 * Returns:	Events at MORSE_TONE, with frequency 0 for the gaps.
 *		Adjacent gaps are merged.
 *
 *		Error if the speed is out of range.
 *
 *--------------------------------------------------------------------*/

func MorseTones(str string, wpm int) ([]ToneEvent, error) {
	var err = ValidateMorseWPM(wpm)
	if err != nil {
		return nil, err
	}

	var events []ToneEvent

	var tone = func(tu int) {
		events = append(events, ToneEvent{FrequencyHz: MORSE_TONE, DurationMs: TIME_UNITS_TO_MS(tu, wpm)})
	}

	var quiet = func(tu int) {
		var ms = TIME_UNITS_TO_MS(tu, wpm)

		if n := len(events); n > 0 && events[n-1].FrequencyHz == 0 {
			events[n-1].DurationMs += ms
			return
		}

		events = append(events, ToneEvent{FrequencyHz: 0, DurationMs: ms})
	}

	var runes = []rune(str)

	for i, p := range runes {
		var enc, ok = morseLookup(p)
		if ok {
			for j, e := range enc {
				if e == '.' {
					tone(1)
				} else {
					tone(3)
				}

				if j != len(enc)-1 { // Intersperse quiet
					quiet(1)
				}
			}
		} else {
			quiet(1)
		}

		if i != len(runes)-1 {
			quiet(3)
		}
	}

	return events, nil
}
